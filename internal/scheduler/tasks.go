package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAppointmentReminder = "appointments.reminder"

const TaskRelanceDossier = "dossiers.relance"

type AppointmentReminderPayload struct {
	DossierID string `json:"dossierId"`
	UserID    string `json:"userId"`
	SlotID    string `json:"slotId"`
}

type RelanceDossierPayload struct {
	DossierID string `json:"dossierId"`
	UserID    string `json:"userId"`
}

func NewAppointmentReminderTask(payload AppointmentReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAppointmentReminder, data), nil
}

func ParseAppointmentReminderPayload(task *asynq.Task) (AppointmentReminderPayload, error) {
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AppointmentReminderPayload{}, err
	}
	return payload, nil
}

func NewRelanceDossierTask(payload RelanceDossierPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRelanceDossier, data), nil
}

func ParseRelanceDossierPayload(task *asynq.Task) (RelanceDossierPayload, error) {
	var payload RelanceDossierPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RelanceDossierPayload{}, err
	}
	return payload, nil
}
