package dto

import (
	"time"

	"github.com/mindbehind/converse-go/internal/models"
)

// MessagePayload is the wire representation of a message, shared by the REST
// API and the realtime channel.
type MessagePayload struct {
	ID           string            `json:"_id,omitempty"`
	Text         string            `json:"text,omitempty"`
	TextFallback string            `json:"textFallback,omitempty"`
	Payload      string            `json:"payload,omitempty"`
	Type         string            `json:"type"`
	Role         string            `json:"role,omitempty"`
	Name         string            `json:"name,omitempty"`
	AvatarURL    string            `json:"avatarUrl,omitempty"`
	Received     float64           `json:"received,omitempty"`
	MediaURL     string            `json:"mediaUrl,omitempty"`
	MediaSize    int64             `json:"mediaSize,omitempty"`
	Coordinates  *CoordinatesDTO   `json:"coordinates,omitempty"`
	Display      *DisplayDTO       `json:"displaySettings,omitempty"`
	Actions      []ActionPayload   `json:"actions,omitempty"`
	Items        []ItemPayload     `json:"items,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SendMessageRequest is the outbound payload for posting a message.
type SendMessageRequest struct {
	Text        string            `json:"text,omitempty" validate:"required_without_all=Payload Coordinates,max=4096"`
	Payload     string            `json:"payload,omitempty" validate:"max=4096"`
	Type        string            `json:"type" validate:"required,oneof=text image file location"`
	Role        string            `json:"role" validate:"required"`
	Coordinates *CoordinatesDTO   `json:"coordinates,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CoordinatesDTO mirrors models.Coordinates on the wire.
type CoordinatesDTO struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

// DisplayDTO mirrors models.DisplaySettings on the wire.
type DisplayDTO struct {
	ImageAspectRatio string `json:"imageAspectRatio,omitempty"`
}

// ActionPayload is the wire representation of a message action.
type ActionPayload struct {
	ID       string            `json:"_id,omitempty"`
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	URI      string            `json:"uri,omitempty"`
	Fallback string            `json:"fallback,omitempty"`
	Size     string            `json:"size,omitempty"`
	Payload  string            `json:"payload,omitempty"`
	IconURL  string            `json:"iconUrl,omitempty"`
	Default  bool              `json:"default,omitempty"`
	State    string            `json:"state,omitempty"`
	Amount   int64             `json:"amount,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ItemPayload is the wire representation of a carousel or list item.
type ItemPayload struct {
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	MediaURL    string            `json:"mediaUrl,omitempty"`
	MediaType   string            `json:"mediaType,omitempty"`
	Size        string            `json:"size,omitempty"`
	Actions     []ActionPayload   `json:"actions,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewSendMessageRequest builds the outbound payload for a locally-authored
// message.
func NewSendMessageRequest(message *models.Message) SendMessageRequest {
	req := SendMessageRequest{
		Text:     message.Text,
		Payload:  message.Payload,
		Type:     message.Type,
		Role:     models.RoleAppUser,
		Metadata: message.Metadata,
	}
	if message.Coordinates != nil {
		req.Coordinates = &CoordinatesDTO{
			Latitude:  message.Coordinates.Latitude,
			Longitude: message.Coordinates.Longitude,
		}
	}
	return req
}

// ToModel converts a wire message into the model, marking it remote unless it
// was authored by the given user id.
func (p MessagePayload) ToModel(currentUserID string, authorID string) *models.Message {
	isCurrentUser := p.Role == models.RoleAppUser && (authorID == "" || authorID == currentUserID)

	message := &models.Message{
		LocalID:      p.ID,
		ServerID:     p.ID,
		Text:         p.Text,
		TextFallback: p.TextFallback,
		Payload:      p.Payload,
		Type:         p.Type,
		Author: models.Author{
			IsCurrentUser: isCurrentUser,
			Role:          p.Role,
			Name:          p.Name,
			AvatarURL:     p.AvatarURL,
		},
		Received:  UnixToTime(p.Received),
		MediaURL:  p.MediaURL,
		MediaSize: p.MediaSize,
		Metadata:  p.Metadata,
	}
	if isCurrentUser {
		message.Status = models.UploadStatusSent
	} else {
		message.Status = models.UploadStatusRemote
	}
	if p.Coordinates != nil {
		message.Coordinates = &models.Coordinates{
			Latitude:  p.Coordinates.Latitude,
			Longitude: p.Coordinates.Longitude,
		}
	}
	if p.Display != nil {
		message.Display = &models.DisplaySettings{ImageAspectRatio: p.Display.ImageAspectRatio}
	}
	if len(p.Actions) > 0 {
		message.Actions = make([]models.MessageAction, 0, len(p.Actions))
		for _, a := range p.Actions {
			message.Actions = append(message.Actions, a.toModel())
		}
	}
	if len(p.Items) > 0 {
		message.Items = make([]models.MessageItem, 0, len(p.Items))
		for _, item := range p.Items {
			message.Items = append(message.Items, item.toModel())
		}
	}
	return message
}

func (a ActionPayload) toModel() models.MessageAction {
	return models.MessageAction{
		ID:       a.ID,
		Type:     a.Type,
		Text:     a.Text,
		URI:      a.URI,
		Fallback: a.Fallback,
		Size:     a.Size,
		Payload:  a.Payload,
		IconURL:  a.IconURL,
		Default:  a.Default,
		State:    a.State,
		Amount:   a.Amount,
		Currency: a.Currency,
		Metadata: a.Metadata,
	}
}

func (i ItemPayload) toModel() models.MessageItem {
	item := models.MessageItem{
		Title:       i.Title,
		Description: i.Description,
		MediaURL:    i.MediaURL,
		MediaType:   i.MediaType,
		Size:        i.Size,
		Metadata:    i.Metadata,
	}
	if len(i.Actions) > 0 {
		item.Actions = make([]models.MessageAction, 0, len(i.Actions))
		for _, a := range i.Actions {
			item.Actions = append(item.Actions, a.toModel())
		}
	}
	return item
}

// NewMessageModels converts a page of wire messages oldest-first.
func NewMessageModels(payloads []MessagePayload, currentUserID string) []*models.Message {
	out := make([]*models.Message, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.ToModel(currentUserID, ""))
	}
	return out
}

// UnixToTime parses the backend's fractional-seconds timestamp format.
func UnixToTime(seconds float64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// TimeToUnix renders a timestamp in the backend's fractional-seconds format.
func TimeToUnix(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
