package sosapi

import (
	"time"

	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/notifier"
	"github.com/BearBump/VeinLine/internal/services/sos"
)

type createRequestBody struct {
	BloodGroupNeeded string `json:"blood_group_needed"`
	UnitsNeeded      int    `json:"units_needed"`
	City             string `json:"city"`
	Area             string `json:"area"`
	HospitalName     string `json:"hospital_name"`
	Message          string `json:"message"`
	Priority         string `json:"priority"`
}

type updateRequestBody struct {
	UnitsNeeded  *int    `json:"units_needed"`
	Area         *string `json:"area"`
	HospitalName *string `json:"hospital_name"`
	Message      *string `json:"message"`
	Priority     *string `json:"priority"`
}

type respondBody struct {
	Response                     string `json:"response"`
	DonorConsentedToShareContact bool   `json:"donor_consented_to_share_contact"`
}

type trackerStatusBody struct {
	Status             string     `json:"status"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	EstimatedArrivalAt *time.Time `json:"estimated_arrival_at"`
	Notes              string     `json:"notes"`
}

type sendMessageBody struct {
	SOSRequestID uint64 `json:"sos_request_id"`
	RecipientID  uint64 `json:"recipient_id"`
	Content      string `json:"content"`
	TemplateType string `json:"template_type"`
}

type emergencyContactBody struct {
	ContactUserID      *uint64 `json:"contact_user_id"`
	ContactName        *string `json:"contact_name"`
	ContactPhone       *string `json:"contact_phone"`
	ContactEmail       *string `json:"contact_email"`
	Relationship       *string `json:"relationship"`
	CanCreateSOS       *bool   `json:"can_create_sos"`
	CanViewMedicalInfo *bool   `json:"can_view_medical_info"`
	IsActive           *bool   `json:"is_active"`
}

type inboundSMSBody struct {
	FromPhone string `json:"from_phone"`
	Message   string `json:"message"`
}

// sosRequestDTO never carries the SMS reply token; donors receive it only by SMS.
type sosRequestDTO struct {
	ID               uint64    `json:"id"`
	Requester        uint64    `json:"requester"`
	BloodGroupNeeded string    `json:"blood_group_needed"`
	UnitsNeeded      int       `json:"units_needed"`
	City             string    `json:"city"`
	Area             string    `json:"area"`
	HospitalName     string    `json:"hospital_name"`
	Message          string    `json:"message"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toRequestDTO(r *models.SOSRequest) sosRequestDTO {
	return sosRequestDTO{
		ID:               r.ID,
		Requester:        r.RequesterID,
		BloodGroupNeeded: string(r.BloodGroupNeeded),
		UnitsNeeded:      r.UnitsNeeded,
		City:             r.City,
		Area:             r.Area,
		HospitalName:     r.HospitalName,
		Message:          r.Message,
		Status:           string(r.Status),
		Priority:         string(r.Priority),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type sosResponseDTO struct {
	ID                           uint64     `json:"id"`
	Request                      uint64     `json:"request"`
	Donor                        uint64     `json:"donor"`
	Response                     string     `json:"response"`
	Channel                      string     `json:"channel"`
	DonorConsentedToShareContact bool       `json:"donor_consented_to_share_contact"`
	PatientContactRevealedAt     *time.Time `json:"patient_contact_revealed_at"`
	RespondedAt                  *time.Time `json:"responded_at"`
	CreatedAt                    time.Time  `json:"created_at"`
	DonorName                    string     `json:"donor_name"`
	DonorBloodGroup              string     `json:"donor_blood_group"`
	DonorCity                    string     `json:"donor_city"`
	DonorArea                    string     `json:"donor_area"`
	DonorPhone                   *string    `json:"donor_phone"`
	TrackerID                    *uint64    `json:"tracker_id,omitempty"`
}

func toResponseDTO(v *sos.ResponseView) sosResponseDTO {
	r := v.Response
	out := sosResponseDTO{
		ID:                           r.ID,
		Request:                      r.RequestID,
		Donor:                        r.DonorID,
		Response:                     string(r.Response),
		Channel:                      string(r.Channel),
		DonorConsentedToShareContact: r.DonorConsentedToShareContact,
		PatientContactRevealedAt:     r.PatientContactRevealedAt,
		RespondedAt:                  r.RespondedAt,
		CreatedAt:                    r.CreatedAt,
		DonorName:                    v.DonorName,
		DonorBloodGroup:              string(v.DonorBloodGroup),
		DonorCity:                    v.DonorCity,
		DonorArea:                    v.DonorArea,
	}
	if v.DonorPhone != "" {
		phone := v.DonorPhone
		out.DonorPhone = &phone
	}
	if v.TrackerID != 0 {
		id := v.TrackerID
		out.TrackerID = &id
	}
	return out
}

type matchResultDTO struct {
	RequestID     uint64          `json:"request_id"`
	MatchedDonors int             `json:"matched_donors"`
	ResponseIDs   []uint64        `json:"response_ids"`
	Created       int             `json:"created"`
	Delivery      notifier.Report `json:"delivery"`
}

func toMatchDTO(m *sos.MatchResult) matchResultDTO {
	out := matchResultDTO{
		RequestID:     m.RequestID,
		MatchedDonors: m.MatchedDonors,
		ResponseIDs:   make([]uint64, 0, len(m.Responses)),
		Delivery:      m.Delivery,
	}
	for _, ref := range m.Responses {
		out.ResponseIDs = append(out.ResponseIDs, ref.ResponseID)
		if ref.Created {
			out.Created++
		}
	}
	if out.Delivery.Recipients == nil {
		out.Delivery.Recipients = []notifier.RecipientReport{}
	}
	return out
}

type trackerDTO struct {
	ID                 uint64     `json:"id"`
	Response           uint64     `json:"response"`
	CurrentStatus      string     `json:"current_status"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	EstimatedArrivalAt *time.Time `json:"estimated_arrival_at"`
	Notes              string     `json:"notes"`
	AgreedAt           time.Time  `json:"agreed_at"`
	TravelingAt        *time.Time `json:"traveling_at"`
	ArrivedAt          *time.Time `json:"arrived_at"`
	DonatingAt         *time.Time `json:"donating_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toTrackerDTO(t *models.DonationTracker) trackerDTO {
	return trackerDTO{
		ID:                 t.ID,
		Response:           t.ResponseID,
		CurrentStatus:      string(t.CurrentStatus),
		Latitude:           t.Latitude,
		Longitude:          t.Longitude,
		EstimatedArrivalAt: t.EstimatedArrivalAt,
		Notes:              t.Notes,
		AgreedAt:           t.AgreedAt,
		TravelingAt:        t.TravelingAt,
		ArrivedAt:          t.ArrivedAt,
		DonatingAt:         t.DonatingAt,
		CompletedAt:        t.CompletedAt,
		CancelledAt:        t.CancelledAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

type notificationDTO struct {
	ID        uint64         `json:"id"`
	Type      string         `json:"notification_type"`
	Title     string         `json:"title"`
	Body      string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	Channels  []string       `json:"channels"`
	Priority  string         `json:"priority"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
}

func toNotificationDTO(n *models.Notification) notificationDTO {
	out := notificationDTO{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Metadata:  n.Metadata,
		Channels:  make([]string, 0, len(n.Channels)),
		Priority:  n.Priority,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	for _, c := range n.Channels {
		out.Channels = append(out.Channels, string(c))
	}
	return out
}

type messageDTO struct {
	ID                uint64     `json:"id"`
	SOSRequestID      uint64     `json:"sos_request_id"`
	Sender            uint64     `json:"sender"`
	Recipient         uint64     `json:"recipient"`
	Content           string     `json:"content"`
	IsTemplateMessage bool       `json:"is_template_message"`
	TemplateType      string     `json:"template_type"`
	IsRead            bool       `json:"is_read"`
	ReadAt            *time.Time `json:"read_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toMessageDTO(m *models.Message) messageDTO {
	return messageDTO{
		ID:                m.ID,
		SOSRequestID:      m.SOSRequestID,
		Sender:            m.SenderID,
		Recipient:         m.RecipientID,
		Content:           m.Content,
		IsTemplateMessage: m.IsTemplate(),
		TemplateType:      string(m.Template),
		IsRead:            m.IsRead,
		ReadAt:            m.ReadAt,
		CreatedAt:         m.CreatedAt,
	}
}

func toMessageDTOs(items []*models.Message) []messageDTO {
	out := make([]messageDTO, 0, len(items))
	for _, m := range items {
		out = append(out, toMessageDTO(m))
	}
	return out
}

type emergencyContactDTO struct {
	ID                 uint64    `json:"id"`
	User               uint64    `json:"user"`
	ContactUser        *uint64   `json:"contact_user"`
	ContactName        string    `json:"contact_name"`
	ContactPhone       string    `json:"contact_phone"`
	ContactEmail       string    `json:"contact_email"`
	Relationship       string    `json:"relationship"`
	CanCreateSOS       bool      `json:"can_create_sos"`
	CanViewMedicalInfo bool      `json:"can_view_medical_info"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toEmergencyContactDTO(c *models.EmergencyContact) emergencyContactDTO {
	return emergencyContactDTO{
		ID:                 c.ID,
		User:               c.UserID,
		ContactUser:        c.ContactUserID,
		ContactName:        c.ContactName,
		ContactPhone:       c.ContactPhone,
		ContactEmail:       c.ContactEmail,
		Relationship:       c.Relationship,
		CanCreateSOS:       c.CanCreateSOS,
		CanViewMedicalInfo: c.CanViewMedicalInfo,
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

type inboundOutcomeDTO struct {
	Ok         bool   `json:"ok"`
	Request    uint64 `json:"request"`
	ResponseID uint64 `json:"response_id"`
	Response   string `json:"response"`
}
