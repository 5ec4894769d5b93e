package models

import "time"

// IocType is the closed set of indicator types.
type IocType string

const (
	IocIP       IocType = "ip"
	IocDomain   IocType = "domain"
	IocURL      IocType = "url"
	IocHash     IocType = "hash"
	IocEmail    IocType = "email"
	IocFileName IocType = "file_name"
	IocOther    IocType = "other"
)

// IocTypes lists every indicator type in display order.
var IocTypes = []IocType{IocIP, IocDomain, IocURL, IocHash, IocEmail, IocFileName, IocOther}

func (t IocType) Valid() bool {
	for _, known := range IocTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IocRecord is a stored indicator. It has no column for the submitter.
type IocRecord struct {
	ID         string     `db:"id"`
	Seq        int64      `db:"seq"`
	Type       IocType    `db:"type"`
	Value      string     `db:"value"`
	Confidence int        `db:"confidence"`
	Tags       StringList `db:"tags"`
	FirstSeen  *time.Time `db:"first_seen"`
	CreatedAt  time.Time  `db:"created_at"`
}

// IocPublic is the public shape of an indicator.
type IocPublic struct {
	IocID      string     `json:"ioc_id"`
	Type       IocType    `json:"type"`
	Value      string     `json:"value"`
	Confidence int        `json:"confidence"`
	Tags       []string   `json:"tags"`
	FirstSeen  *time.Time `json:"first_seen"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (r *IocRecord) Public() IocPublic {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return IocPublic{
		IocID:      r.ID,
		Type:       r.Type,
		Value:      r.Value,
		Confidence: r.Confidence,
		Tags:       tags,
		FirstSeen:  r.FirstSeen,
		CreatedAt:  r.CreatedAt,
	}
}

// IocSubmitResponse is returned after a successful submission.
type IocSubmitResponse struct {
	IocID  string `json:"ioc_id"`
	Stored bool   `json:"stored"`
}
