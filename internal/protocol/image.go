package protocol

import (
	"fmt"
	"strings"
	"time"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/optional"
	"github.com/google/uuid"
)

// ServiceName is the fully-qualified name of the remote image service. It is
// also the service name sent in health check requests.
const ServiceName = "image.Image"

// Procedure paths of the image service.
const (
	SubscribeImagesProcedure = "/" + ServiceName + "/SubscribeImages"
	VisitProcedure           = "/" + ServiceName + "/Visit"
	HealthCheckProcedure     = "/grpc.health.v1.Health/Check"
)

// ImageType is the wire representation of an image category.
type ImageType string

const (
	ImageTypeNormal ImageType = "NORMAL"
	ImageTypePoster ImageType = "POSTER"
	ImageTypeSexy   ImageType = "SEXY"
	ImageTypePorn   ImageType = "PORN"
)

var imageTypes = map[domain.Category]ImageType{
	domain.CategoryNormal: ImageTypeNormal,
	domain.CategoryPoster: ImageTypePoster,
	domain.CategorySexy:   ImageTypeSexy,
	domain.CategoryPorn:   ImageTypePorn,
}

// SubscribeRequest asks the server to stream images of the given types.
type SubscribeRequest struct {
	Types []ImageType `json:"types"`
}

// SubscribeResponse is a single message on the subscription stream. Exactly
// one of its fields is set.
type SubscribeResponse struct {
	Ready *Ready      `json:"ready,omitempty"`
	Image *ImageEvent `json:"image,omitempty"`
}

// Ready is sent by the server once the subscription is established.
type Ready struct{}

// ImageEvent describes one image pushed by the server.
type ImageEvent struct {
	UUID    string    `json:"uuid,omitempty"`
	URL     string    `json:"url"`
	InfoURL string    `json:"infoUrl,omitempty"`
	Title   string    `json:"title,omitempty"`
	Desc    string    `json:"desc,omitempty"`
	Type    ImageType `json:"type"`
}

// VisitRequest notifies the server that an image was visited.
type VisitRequest struct {
	URL string `json:"url"`
}

// VisitResponse is the server's acknowledgment of a visit.
type VisitResponse struct {
	OK bool `json:"ok"`
}

// CategoryToImageType converts a domain category to its wire type.
func CategoryToImageType(c domain.Category) (ImageType, error) {
	t, ok := imageTypes[c]
	if !ok {
		return "", fmt.Errorf("unknown category: %d", c)
	}

	return t, nil
}

// ImageTypeToCategory converts a wire type to a domain category.
func ImageTypeToCategory(t ImageType) (domain.Category, bool) {
	for c, typ := range imageTypes {
		if strings.EqualFold(string(typ), string(t)) {
			return c, true
		}
	}

	return 0, false
}

// CategorySetToRequest builds a subscribe request for the given set.
func CategorySetToRequest(categories domain.CategorySet) *SubscribeRequest {
	req := &SubscribeRequest{Types: make([]ImageType, 0, categories.Len())}
	for _, c := range categories.Slice() {
		req.Types = append(req.Types, imageTypes[c])
	}

	return req
}

// RequestToCategorySet parses the types of a subscribe request. Unknown types
// are returned separately.
func RequestToCategorySet(req *SubscribeRequest) (domain.CategorySet, []ImageType) {
	var (
		set     domain.CategorySet
		unknown []ImageType
	)
	for _, t := range req.Types {
		c, ok := ImageTypeToCategory(t)
		if !ok {
			unknown = append(unknown, t)
			continue
		}
		set = set.With(c)
	}

	return set, unknown
}

// RecordFromEvent builds an ImageRecord from an image event. A random
// identifier is assigned if the server did not send one.
//
// An error wrapping *domain.ValidationError is returned if the event lacks a
// URL or carries an unknown type.
func RecordFromEvent(evt *ImageEvent, receivedAt time.Time) (domain.ImageRecord, error) {
	if evt == nil {
		return domain.ImageRecord{}, &domain.ValidationError{Missing: []string{"url", "category"}}
	}

	category := optional.Empty[domain.Category]()
	if c, ok := ImageTypeToCategory(evt.Type); ok {
		category = optional.New(c)
	}

	id := evt.UUID
	if id == "" {
		id = uuid.NewString()
	}

	rec, err := domain.NewImageRecord(domain.ImageRecordParams{
		ID:         id,
		URL:        evt.URL,
		InfoURL:    evt.InfoURL,
		Title:      optional.NonZero(evt.Title),
		Category:   category,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		return domain.ImageRecord{}, fmt.Errorf("image event %q (type %q): %w", evt.UUID, evt.Type, err)
	}

	return rec, nil
}

// RecordToEvent converts a record back to its wire form.
func RecordToEvent(rec domain.ImageRecord) *ImageEvent {
	return &ImageEvent{
		UUID:    rec.ID,
		URL:     rec.URL,
		InfoURL: rec.InfoURL,
		Title:   rec.Title.Value,
		Type:    imageTypes[rec.Category],
	}
}
