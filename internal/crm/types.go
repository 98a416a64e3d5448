package crm

import "encoding/json"

// Appointment is an appointment record as returned by the CRM gateway.
// Date may arrive as yyyy-MM-dd or as a full RFC3339 timestamp depending on
// which gateway endpoint produced it; callers normalize before use.
type Appointment struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

// AppointmentInput is the payload for creating or updating an appointment.
type AppointmentInput struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status,omitempty"`
	Type      string `json:"type,omitempty"`
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

// Patient is a patient record from the CRM gateway.
type Patient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

// TeamMember is a clinic team member record from the CRM gateway.
type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TeamMemberInput is the payload for updating a team member.
type TeamMemberInput struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// listEnvelope is the gateway's list response shape: {data: [...], total}.
type listEnvelope[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// entityEnvelope covers mutation responses that wrap the entity in {data: ...}.
type entityEnvelope[T any] struct {
	Data *T `json:"data"`
}

// decodeEntity unmarshals a mutation response that is either the bare entity
// or an envelope containing it.
func decodeEntity[T any](raw []byte) (T, error) {
	var env entityEnvelope[T]
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		return *env.Data, nil
	}
	var out T
	err := json.Unmarshal(raw, &out)
	return out, err
}
