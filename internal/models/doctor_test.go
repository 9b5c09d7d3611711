package models

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSplitDoctorPatch(t *testing.T) {
	direct, gated, problems := SplitDoctorPatch(map[string]any{
		"address":             " 12 Main St ",
		"website":             "https://clinic.example",
		"feesPerCunsaltation": float64(500),
		"timings":             []any{"09:00", "17:00"},
	})
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if want := map[string]any{"address": "12 Main St", "website": "https://clinic.example"}; !reflect.DeepEqual(direct, want) {
		t.Errorf("direct = %v, want %v", direct, want)
	}
	if want := map[string]any{"feesPerCunsaltation": float64(500), "timings": []string{"09:00", "17:00"}}; !reflect.DeepEqual(gated, want) {
		t.Errorf("gated = %v, want %v", gated, want)
	}
}

func TestSplitDoctorPatchProblems(t *testing.T) {
	_, _, problems := SplitDoctorPatch(map[string]any{
		"status":              "approved",
		"feesPerCunsaltation": -1,
		"timings":             []any{"17:00", "09:00"},
		"firstName":           "  ",
	})
	if len(problems) != 4 {
		t.Fatalf("got %d problems: %v", len(problems), problems)
	}
}

func TestNormalizeUnknownField(t *testing.T) {
	if _, err := NormalizeDoctorField("isAdmin", true); !errors.Is(err, ErrUnknownDoctorField) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyFieldsAcceptsStoredShapes(t *testing.T) {
	d := &Doctor{FeesPerCunsaltation: 300, Timings: []string{"08:00", "12:00"}}
	err := d.ApplyFields(map[string]any{
		"feesPerCunsaltation": int32(450),
		"timings":             primitive.A{"10:00", "18:00"},
		"experience":          float64(7),
		"specialization":      "Cardiology",
	})
	if err != nil {
		t.Fatalf("ApplyFields: %v", err)
	}
	if d.FeesPerCunsaltation != 450 || d.Experience != "7" || d.Specialization != "Cardiology" {
		t.Errorf("unexpected doctor %+v", d)
	}
	if !reflect.DeepEqual(d.Timings, []string{"10:00", "18:00"}) {
		t.Errorf("timings = %v", d.Timings)
	}
}

func TestStageMergesAndClears(t *testing.T) {
	d := &Doctor{}
	by := primitive.NewObjectID()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	d.Stage(map[string]any{"feesPerCunsaltation": float64(100)}, by, now)
	d.Stage(map[string]any{"specialization": "ENT", "feesPerCunsaltation": float64(200)}, by, now.Add(time.Hour))

	if !d.HasPendingUpdates || len(d.PendingUpdates.Fields) != 2 {
		t.Fatalf("stage = %+v", d.PendingUpdates)
	}
	if d.PendingUpdates.Fields["feesPerCunsaltation"] != float64(200) {
		t.Errorf("newer staged value should win")
	}
	if !d.PendingUpdates.RequestedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("requestedAt = %v", d.PendingUpdates.RequestedAt)
	}

	d.ClearStage()
	if d.HasPendingUpdates || d.PendingUpdates != nil {
		t.Errorf("stage not cleared: %+v", d)
	}
}

func TestEveryPolicyFieldRoundTrips(t *testing.T) {
	samples := map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "phone": "123", "email": "a@b.c",
		"website": "w", "address": "x", "specialization": "ENT", "experience": "5",
		"feesPerCunsaltation": float64(1), "timings": []string{"09:00", "10:00"},
	}
	for field := range DoctorFieldPolicies {
		raw, ok := samples[field]
		if !ok {
			t.Fatalf("no sample for policy field %q", field)
		}
		d := &Doctor{}
		if err := d.ApplyFields(map[string]any{field: raw}); err != nil {
			t.Errorf("%s: %v", field, err)
		}
	}
}
