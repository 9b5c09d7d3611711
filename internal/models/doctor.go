package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/utils"
)

type DoctorStatus string

const (
	DoctorPending  DoctorStatus = "pending"
	DoctorApproved DoctorStatus = "approved"
	DoctorRejected DoctorStatus = "rejected"
	DoctorBlocked  DoctorStatus = "blocked"
)

type Doctor struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`

	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Phone     string `bson:"phone" json:"phone"`
	Email     string `bson:"email" json:"email"`
	Website   string `bson:"website" json:"website"`
	Address   string `bson:"address" json:"address"`

	Specialization      string   `bson:"specialization" json:"specialization"`
	Experience          string   `bson:"experience" json:"experience"`
	FeesPerCunsaltation float64  `bson:"feesPerCunsaltation" json:"feesPerCunsaltation"`
	Timings             []string `bson:"timings" json:"timings"` // [start, end] HH:mm in UTC

	Status            DoctorStatus    `bson:"status" json:"status"`
	PendingUpdates    *PendingUpdates `bson:"pendingUpdates,omitempty" json:"pendingUpdates,omitempty"`
	HasPendingUpdates bool            `bson:"hasPendingUpdates" json:"hasPendingUpdates"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PendingUpdates stages admin-gated edits of an approved doctor.
type PendingUpdates struct {
	Fields      map[string]any     `bson:"fields" json:"fields"`
	RequestedAt time.Time          `bson:"requestedAt" json:"requestedAt"`
	RequestedBy primitive.ObjectID `bson:"requestedBy" json:"requestedBy"`
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Stage merges fields into the pending stage, newer values winning.
func (d *Doctor) Stage(fields map[string]any, by primitive.ObjectID, at time.Time) {
	if d.PendingUpdates == nil {
		d.PendingUpdates = &PendingUpdates{Fields: map[string]any{}}
	}
	if d.PendingUpdates.Fields == nil {
		d.PendingUpdates.Fields = map[string]any{}
	}
	for k, v := range fields {
		d.PendingUpdates.Fields[k] = v
	}
	d.PendingUpdates.RequestedAt = at
	d.PendingUpdates.RequestedBy = by
	d.HasPendingUpdates = true
}

func (d *Doctor) ClearStage() {
	d.PendingUpdates = nil
	d.HasPendingUpdates = false
}

// FieldTier tells whether a doctor field can be changed by the doctor alone.
type FieldTier int

const (
	SelfService FieldTier = iota
	AdminGated
)

func (t FieldTier) String() string {
	if t == AdminGated {
		return "admin-gated"
	}
	return "self-service"
}

type FieldPolicy struct {
	Tier      FieldTier
	normalize func(raw any) (any, error)
	apply     func(d *Doctor, v any)
}

// DoctorFieldPolicies is the single source of truth for which profile fields
// a doctor may edit and whether an edit needs admin review.
var DoctorFieldPolicies = map[string]FieldPolicy{
	"firstName": {SelfService, requiredText, func(d *Doctor, v any) { d.FirstName = v.(string) }},
	"lastName":  {SelfService, requiredText, func(d *Doctor, v any) { d.LastName = v.(string) }},
	"phone":     {SelfService, optionalText, func(d *Doctor, v any) { d.Phone = v.(string) }},
	"email":     {SelfService, optionalText, func(d *Doctor, v any) { d.Email = v.(string) }},
	"website":   {SelfService, optionalText, func(d *Doctor, v any) { d.Website = v.(string) }},
	"address":   {SelfService, optionalText, func(d *Doctor, v any) { d.Address = v.(string) }},

	"specialization":      {AdminGated, requiredText, func(d *Doctor, v any) { d.Specialization = v.(string) }},
	"experience":          {AdminGated, experienceValue, func(d *Doctor, v any) { d.Experience = v.(string) }},
	"feesPerCunsaltation": {AdminGated, feeValue, func(d *Doctor, v any) { d.FeesPerCunsaltation = v.(float64) }},
	"timings":             {AdminGated, timingsValue, func(d *Doctor, v any) { d.Timings = v.([]string) }},
}

// NormalizeDoctorField validates raw (as decoded from JSON or BSON) and
// returns the canonical Go value for the field.
func NormalizeDoctorField(field string, raw any) (any, error) {
	p, ok := DoctorFieldPolicies[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDoctorField, field)
	}
	v, err := p.normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// SplitDoctorPatch normalizes every entry of patch and partitions it by tier.
// Problems are reported per field in a stable order.
func SplitDoctorPatch(patch map[string]any) (direct, gated map[string]any, problems []string) {
	direct, gated = map[string]any{}, map[string]any{}
	for _, field := range sortedKeys(patch) {
		v, err := NormalizeDoctorField(field, patch[field])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if DoctorFieldPolicies[field].Tier == AdminGated {
			gated[field] = v
		} else {
			direct[field] = v
		}
	}
	return direct, gated, problems
}

// ApplyFields writes fields onto the live record. Values are normalized again
// so staged maps read back from the store (primitive.A, int32) are accepted.
func (d *Doctor) ApplyFields(fields map[string]any) error {
	for _, field := range sortedKeys(fields) {
		v, err := NormalizeDoctorField(field, fields[field])
		if err != nil {
			return err
		}
		DoctorFieldPolicies[field].apply(d, v)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requiredText(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("must not be empty")
	}
	return s, nil
}

func optionalText(raw any) (any, error) {
	if raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("must be a string")
	}
	return strings.TrimSpace(s), nil
}

func experienceValue(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return requiredText(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int, int32, int64:
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("must be a string or number")
}

func feeValue(raw any) (any, error) {
	var fee float64
	switch v := raw.(type) {
	case float64:
		fee = v
	case int:
		fee = float64(v)
	case int32:
		fee = float64(v)
	case int64:
		fee = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		fee = f
	default:
		return nil, fmt.Errorf("must be a number")
	}
	if fee < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return fee, nil
}

func timingsValue(raw any) (any, error) {
	var items []any
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []any:
		items = v
	case primitive.A:
		items = v
	default:
		return nil, fmt.Errorf("must be a [start, end] pair")
	}
	if len(items) != 2 {
		return nil, fmt.Errorf("must be a [start, end] pair")
	}

	out := make([]string, 2)
	mins := make([]int, 2)
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("must contain HH:mm strings")
		}
		m, err := utils.ParseClock(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out[i], mins[i] = strings.TrimSpace(s), m
	}
	if mins[0] >= mins[1] {
		return nil, fmt.Errorf("start must be before end")
	}
	return out, nil
}
