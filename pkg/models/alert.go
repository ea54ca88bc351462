package models

import "time"

// AlertMessage is one timestamped line of an alert.
type AlertMessage struct {
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert records an anomaly. Board alerts carry a location; component alerts
// additionally carry stack, service and task identity.
type Alert struct {
	UUID          string         `json:"alertUUID"`
	Type          AlertType      `json:"alertType"`
	CreatedAt     time.Time      `json:"timestamp"`
	Acknowledged  bool           `json:"isAcknowledged"`
	RelatedEntity string         `json:"relatedEntity"`
	Messages      []AlertMessage `json:"messages"`
	Location      Location       `json:"location"`
	StackName     string         `json:"stackName,omitempty"`
	StackUUID     string         `json:"stackUUID,omitempty"`
	ServiceName   string         `json:"serviceName,omitempty"`
	ServiceUUID   string         `json:"serviceUUID,omitempty"`
	TaskID        string         `json:"taskID,omitempty"`
}

// NewBoardAlert creates a board alert keyed to the board address. Messages past
// MaxAlertMessages are rejected with ErrTooManyMessages; the alert keeps the rest.
func NewBoardAlert(id string, location Location, messages []string, now time.Time) (*Alert, error) {
	alert := &Alert{
		UUID:          id,
		Type:          AlertTypeBoard,
		CreatedAt:     now,
		RelatedEntity: location.BoardAddress,
		Location:      location,
	}
	return alert, alert.addMessages(messages, now)
}

// ComponentRef identifies the workload a component alert refers to.
type ComponentRef struct {
	StackName   string
	StackUUID   string
	ServiceName string
	ServiceUUID string
	TaskID      string
}

// NewComponentAlert creates a component alert keyed to the task id.
func NewComponentAlert(id string, ref ComponentRef, location Location, messages []string, now time.Time) (*Alert, error) {
	alert := &Alert{
		UUID:          id,
		Type:          AlertTypeComponent,
		CreatedAt:     now,
		RelatedEntity: ref.TaskID,
		Location:      location,
		StackName:     ref.StackName,
		StackUUID:     ref.StackUUID,
		ServiceName:   ref.ServiceName,
		ServiceUUID:   ref.ServiceUUID,
		TaskID:        ref.TaskID,
	}
	return alert, alert.addMessages(messages, now)
}

func (a *Alert) addMessages(messages []string, now time.Time) error {
	for _, m := range messages {
		if err := a.AddMessage(m, now); err != nil {
			return err
		}
	}
	return nil
}

// AddMessage appends a message unless the alert is full.
func (a *Alert) AddMessage(text string, at time.Time) error {
	if len(a.Messages) >= MaxAlertMessages {
		return ErrTooManyMessages
	}
	a.Messages = append(a.Messages, AlertMessage{Text: text, Timestamp: at})
	return nil
}

// Acknowledge is idempotent.
func (a *Alert) Acknowledge() {
	a.Acknowledged = true
}

func (a *Alert) Unacknowledge() {
	a.Acknowledged = false
}

func (a *Alert) IsBoardAlert() bool {
	return a.Type == AlertTypeBoard
}

func (a *Alert) IsComponentAlert() bool {
	return a.Type == AlertTypeComponent
}

// AgeAt returns how old the alert is at now. Clock skew never yields a negative age.
func (a *Alert) AgeAt(now time.Time) time.Duration {
	age := now.Sub(a.CreatedAt)
	if age < 0 {
		return 0
	}
	return age
}

func (a *Alert) Clone() *Alert {
	out := *a
	out.Messages = append([]AlertMessage(nil), a.Messages...)
	return &out
}
