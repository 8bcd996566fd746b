package events

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// WebhookExecutor is the part of a discord session used to post messages.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordConfig configures the discord webhook broadcaster.
type DiscordConfig struct {
	WebhookID    string
	WebhookToken string
	Username     string
	// Events limits which names are forwarded. Empty forwards everything.
	Events    []string
	QueueSize int
}

// DiscordNotifier posts selected events to a discord channel through a
// webhook. Delivery happens on a background goroutine; a full queue drops.
type DiscordNotifier struct {
	exec      WebhookExecutor
	cfg       DiscordConfig
	allow     map[Name]bool
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

// NewDiscordNotifier builds a notifier over a token-less discord session.
func NewDiscordNotifier(cfg DiscordConfig, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return newDiscordNotifier(session, cfg, logger), nil
}

func newDiscordNotifier(exec WebhookExecutor, cfg DiscordConfig, logger *zap.Logger) *DiscordNotifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Username == "" {
		cfg.Username = "Dev Tycoon"
	}
	allow := make(map[Name]bool, len(cfg.Events))
	for _, n := range cfg.Events {
		allow[Name(n)] = true
	}
	d := &DiscordNotifier{
		exec:      exec,
		cfg:       cfg,
		allow:     allow,
		events:    make(chan Event, cfg.QueueSize),
		logger:    logger.Named("discord_notifier"),
		closeChan: make(chan struct{}),
	}
	go d.eventLoop()
	return d
}

func (d *DiscordNotifier) Publish(channel string, name Name, payload Payload) {
	if len(d.allow) > 0 && !d.allow[name] {
		return
	}
	select {
	case d.events <- Event{Channel: channel, Name: name, Payload: payload}:
	default:
		d.logger.Warn("Discord queue full, dropping event", zap.String("event", string(name)))
	}
}

func (d *DiscordNotifier) eventLoop() {
	for {
		select {
		case event := <-d.events:
			d.send(event)
		case <-d.closeChan:
			return
		}
	}
}

func (d *DiscordNotifier) send(event Event) {
	_, err := d.exec.WebhookExecute(d.cfg.WebhookID, d.cfg.WebhookToken, false, &discordgo.WebhookParams{
		Username: d.cfg.Username,
		Content:  FormatMessage(event),
	})
	if err != nil {
		d.logger.Error("Failed to post discord webhook",
			zap.Error(err),
			zap.String("event", string(event.Name)),
		)
	}
}

func (d *DiscordNotifier) Close() {
	close(d.closeChan)
}

// FormatMessage renders an event as a single chat line with its payload
// fields sorted by key.
func FormatMessage(event Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", event.Name)
	if event.Channel != "" && event.Channel != GlobalChannel {
		fmt.Fprintf(&b, " (%s)", event.Channel)
	}
	keys := make([]string, 0, len(event.Payload))
	for k := range event.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, event.Payload[k])
	}
	return b.String()
}
