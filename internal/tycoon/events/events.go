// Package events publishes simulation notifications to external transports.
// Publishing is fire-and-forget: implementations never block the caller and
// drop events they cannot deliver.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Name identifies the kind of notification.
type Name string

const (
	ProjectCompleted  Name = "project.completed"
	ProjectFailed     Name = "project.failed"
	EmployeeLowEnergy Name = "employee.low_energy"
	EmployeeLowMorale Name = "employee.low_morale"
	EmployeeRested    Name = "employee.rested"
	EmployeeAssigned  Name = "employee.assigned"
	PayrollFailed     Name = "payroll.failed"
	CompanyBankrupt   Name = "company.bankrupt"
	BugSpawned        Name = "bug.spawned"
	BugFixed          Name = "bug.fixed"
	MarketEventStart  Name = "market.event"
	QuestCompleted    Name = "quest.completed"
	QuestExpired      Name = "quest.expired"
)

// GlobalChannel carries notifications meant for every player.
const GlobalChannel = "global"

// PlayerChannel is the private channel of one player.
func PlayerChannel(playerID uuid.UUID) string {
	return "player." + playerID.String()
}

// Payload is the free-form body of an event.
type Payload map[string]interface{}

// Event is the envelope written to transports.
type Event struct {
	Channel string    `json:"channel"`
	Name    Name      `json:"name"`
	Payload Payload   `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Broadcaster publishes events without waiting for delivery.
type Broadcaster interface {
	Publish(channel string, name Name, payload Payload)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(string, Name, Payload) {}

// Fanout publishes every event to each of its broadcasters.
type Fanout []Broadcaster

func (f Fanout) Publish(channel string, name Name, payload Payload) {
	for _, b := range f {
		b.Publish(channel, name, payload)
	}
}
