package place

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewFromCreateRequest(t *testing.T) {
	req := CreatePlaceRequest{Title: "Empire State Building", Description: "Very tall.", Address: "20 W 34th St"}
	loc := Location{Lat: 40.7484474, Lng: -73.9871516}

	p := NewFromCreateRequest(req, loc, "uploads/images/a.png", "u1")

	if _, err := uuid.Parse(p.ID); err != nil {
		t.Fatalf("id %q is not a uuid: %v", p.ID, err)
	}
	if p.Title != req.Title || p.Address != req.Address || p.Location != loc {
		t.Fatalf("fields not copied: %+v", p)
	}
	if p.CreatorID != "u1" || p.Image != "uploads/images/a.png" {
		t.Fatalf("unexpected creator/image: %+v", p)
	}
	if p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("timestamps not set: %v %v", p.CreatedAt, p.UpdatedAt)
	}

	other := NewFromCreateRequest(req, loc, "uploads/images/a.png", "u1")
	if other.ID == p.ID {
		t.Fatal("ids must be unique")
	}
}

func TestRequestsNormalize(t *testing.T) {
	c := CreatePlaceRequest{Title: " a ", Description: " bcdef ", Address: " c "}
	c.Normalize()
	if c.Title != "a" || c.Description != "bcdef" || c.Address != "c" {
		t.Fatalf("create request not trimmed: %+v", c)
	}

	u := UpdatePlaceRequest{Title: "\ta\n", Description: "  bcdef"}
	u.Normalize()
	if u.Title != "a" || u.Description != "bcdef" {
		t.Fatalf("update request not trimmed: %+v", u)
	}
}
