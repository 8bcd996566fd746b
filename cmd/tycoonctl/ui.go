package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/scheduler"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printResult(r jobs.Result) {
	line := fmt.Sprintf("%-24s processed=%d changed=%d skipped=%d failed=%d",
		r.Job, r.Processed, r.Changed, r.Skipped, r.Failed)
	if r.Failed > 0 {
		printWarn(line)
		return
	}
	printSuccess(line)
}

func printReport(report *scheduler.TickReport) {
	accent.Printf("tick %d\n", report.Generation)
	for _, r := range report.Results {
		printResult(r)
	}
	for _, name := range report.Locked {
		printWarn(fmt.Sprintf("%-24s skipped, lock held", name))
	}
	for _, name := range report.Failed {
		printError(fmt.Sprintf("%-24s failed", name))
	}
}

func printCadence(cadence map[string]int) {
	names := make([]string, 0, len(cadence))
	for name := range cadence {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printInfo(fmt.Sprintf("%-24s every %d tick(s)", name, cadence[name]))
	}
}

func printEvent(event events.Event) {
	accent.Printf("[%s] ", event.Channel)
	printInfo(events.FormatMessage(event))
}

func resultFromProto(s *structpb.Struct) jobs.Result {
	f := s.GetFields()
	return jobs.Result{
		Job:       f["job"].GetStringValue(),
		Processed: int(f["processed"].GetNumberValue()),
		Changed:   int(f["changed"].GetNumberValue()),
		Skipped:   int(f["skipped"].GetNumberValue()),
		Failed:    int(f["failed"].GetNumberValue()),
	}
}

func reportFromProto(s *structpb.Struct) *scheduler.TickReport {
	f := s.GetFields()
	report := &scheduler.TickReport{Generation: uint64(f["generation"].GetNumberValue())}
	for _, v := range f["results"].GetListValue().GetValues() {
		report.Results = append(report.Results, resultFromProto(v.GetStructValue()))
	}
	for _, v := range f["locked"].GetListValue().GetValues() {
		report.Locked = append(report.Locked, v.GetStringValue())
	}
	for _, v := range f["failed"].GetListValue().GetValues() {
		report.Failed = append(report.Failed, v.GetStringValue())
	}
	return report
}

func cadenceFromProto(s *structpb.Struct) map[string]int {
	out := make(map[string]int)
	for _, v := range s.GetFields()["jobs"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		out[f["name"].GetStringValue()] = int(f["every_ticks"].GetNumberValue())
	}
	return out
}
