// Package kafkasink publishes every appended alert to a Kafka topic for
// downstream consumers outside this process. It is an optional Observer:
// wiring it is opt-in via system configuration, and a publish failure is
// logged, never propagated back into the aggregator's Append.
package kafkasink

import (
	"encoding/json"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/kafka"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// Publisher is an alerts.Observer that mirrors every insertion to Kafka.
type Publisher struct {
	appCtx   *appctx.Context
	producer *kafka.Producer
}

// New wraps producer as an alerts.Observer.
func New(appCtx *appctx.Context, producer *kafka.Producer) *Publisher {
	return &Publisher{appCtx: appCtx, producer: producer}
}

type wireAlert struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	CameraName   string `json:"cameraName"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	SnapshotPath string `json:"snapshotPath"`
}

func (p *Publisher) OnAlertAdded(a models.Alert, _ int) {
	payload, err := json.Marshal(wireAlert{
		ID:           a.ID,
		Timestamp:    a.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		CameraName:   a.CameraName,
		Type:         string(a.Kind),
		Message:      a.Message,
		SnapshotPath: a.SnapshotPath,
	})
	if err != nil {
		p.appCtx.Logger.Printf("kafkasink: marshal alert %s: %v", a.ID, err)
		return
	}
	if err := p.producer.SendAlert(a.CameraName, payload); err != nil {
		p.appCtx.Logger.Printf("kafkasink: publish alert %s: %v", a.ID, err)
	}
}

func (p *Publisher) OnCountChanged(int)                  {}
func (p *Publisher) OnAlertChanged(models.Alert, int) {}
