package photo

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Photo is the sole persistent entity of the capture-to-delivery
// pipeline: one record per (user, mission) pair. The pair is enforced
// unique by an index in Mongo, so a user gets at most one photo per
// daily mission. ObjectKey points into object storage and is never
// exposed to clients; read URLs are derived on demand by the resolver.
type Photo struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"userId"`
	MissionID string             `bson:"mission_id" json:"missionId"`
	ObjectKey string             `bson:"object_key" json:"-"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	IsPublic  bool               `bson:"is_public" json:"isPublic"`
	IsShared  bool               `bson:"is_shared" json:"isShared"`
	FileSize  int64              `bson:"file_size" json:"fileSize"`
	MimeType  string             `bson:"mime_type" json:"mimeType"`
	Width     int                `bson:"width" json:"width"`
	Height    int                `bson:"height" json:"height"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (p *Photo) ToJSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func FromJSON(data string) (*Photo, error) {
	p := &Photo{}
	err := json.Unmarshal([]byte(data), p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// View is a Photo as API clients see it: the record metadata plus a
// time-limited signed read URL. ImageURL is null when the resolver
// could not sign a URL (storage outage, blob not yet written by the
// encode worker). A null URL never fails the containing response.
type View struct {
	Photo
	ImageURL *string `json:"imageUrl"`
}

// UploadResult is the response body for a completed upload. Replaced
// tells the caller whether this upload overwrote an earlier photo for
// the same mission.
type UploadResult struct {
	View
	Replaced bool `json:"replaced"`
}

// Update carries the mutable fields a client may change after upload.
// Nil pointers mean "leave unchanged".
type Update struct {
	Comment  *string `json:"comment"`
	IsPublic *bool   `json:"isPublic"`
}

// IsEmpty returns true if the update would change nothing.
func (u *Update) IsEmpty() bool {
	return u.Comment == nil && u.IsPublic == nil
}
