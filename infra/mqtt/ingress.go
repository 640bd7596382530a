// Package mqtt receives emergency task reports from the field over an MQTT
// broker and feeds them into the controller. The ingress is optional; the
// engine runs fully without a broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/yw35561-wq/Mic-Scheduler/core/logger"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// Config defines the connection parameters for the emergency ingress.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Topic carries JSON-encoded emergency task reports.
	Topic string `json:"topic"`
	QoS   byte   `json:"qos"`
}

// emergencyReport is the wire format of a field report.
type emergencyReport struct {
	System      string  `json:"system"`
	Duration    int     `json:"duration_hours"`
	Criticality int     `json:"criticality"`
	Severity    int     `json:"severity"`
	Occurrence  int     `json:"occurrence"`
	Detection   int     `json:"detection"`
	Demand      []int   `json:"demand"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Note        string  `json:"note"`
}

// Handler consumes a decoded emergency task.
type Handler func(model.Task)

// Ingress subscribes to the emergency topic and hands decoded tasks to the
// handler.
type Ingress struct {
	cli   paho.Client
	cfg   Config
	log   logger.Logger
	onMsg Handler
}

var newClient = func(opts *paho.ClientOptions) paho.Client {
	return paho.NewClient(opts)
}

// NewIngress connects to the broker and subscribes. The handler runs on the
// paho callback goroutine; it should hand off quickly.
func NewIngress(cfg Config, log logger.Logger, h Handler) (*Ingress, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt ingress: broker and topic are required")
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	ing := &Ingress{cfg: cfg, log: log, onMsg: h}
	ing.cli = newClient(opts)
	if tok := ing.cli.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tok.Error())
	}
	if tok := ing.cli.Subscribe(cfg.Topic, cfg.QoS, ing.handle); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", cfg.Topic, tok.Error())
	}
	log.Infof("emergency ingress listening on %s", cfg.Topic)
	return ing, nil
}

func (i *Ingress) handle(_ paho.Client, msg paho.Message) {
	var rep emergencyReport
	if err := json.Unmarshal(msg.Payload(), &rep); err != nil {
		i.log.Errorf("emergency report on %s: %v", msg.Topic(), err)
		return
	}
	t, err := rep.toTask()
	if err != nil {
		i.log.Errorf("emergency report rejected: %v", err)
		return
	}
	i.onMsg(t)
}

func (r emergencyReport) toTask() (model.Task, error) {
	sys, err := model.ParseSystem(r.System)
	if err != nil {
		return model.Task{}, err
	}
	if r.Duration < 1 {
		return model.Task{}, fmt.Errorf("duration %d must be >= 1", r.Duration)
	}
	crit := r.Criticality
	if crit == 0 && r.Severity > 0 {
		crit = model.CriticalityFromRPN(r.Severity, r.Occurrence, r.Detection)
	}
	return model.Task{
		System:        sys,
		DurationHours: r.Duration,
		Criticality:   crit,
		Demand:        r.Demand,
		X:             r.X,
		Y:             r.Y,
		Z:             r.Z,
		Urgent:        true,
		Remarks:       r.Note,
	}, nil
}

// Close disconnects from the broker.
func (i *Ingress) Close() {
	if i.cli != nil && i.cli.IsConnected() {
		i.cli.Disconnect(250)
	}
}
