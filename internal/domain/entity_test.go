package domain

import (
	"errors"
	"testing"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0x2", SuiFramework},
		{"0x6", ClockID},
		{"6", ClockID},
		{"0xABC", "0x" + "0000000000000000000000000000000000000000000000000000000000000abc"},
		{SuiFramework, SuiFramework},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssetType(t *testing.T) {
	deep := NewAssetType("0xb", "deep", "DEEP")
	if deep.Name() != "DEEP" {
		t.Errorf("Name = %q", deep.Name())
	}
	if deep.Package() != NormalizeID("0xb") {
		t.Errorf("Package = %q", deep.Package())
	}

	parsed, err := ParseAssetType("0xb::deep::DEEP")
	if err != nil {
		t.Fatalf("ParseAssetType failed: %v", err)
	}
	if parsed != deep {
		t.Errorf("parsed %q, want %q", parsed, deep)
	}

	if _, err := ParseAssetType("0xb::deep"); err == nil {
		t.Error("expected error for two-part type")
	}

	if SuiType().String() != SuiFramework+"::sui::SUI" {
		t.Errorf("SuiType = %q", SuiType())
	}
}

func TestPackageDeployment_WithPackageID(t *testing.T) {
	p := PackageDeployment{Name: "token"}

	p, err := p.WithPackageID("0x1")
	if err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}
	if _, err := p.WithPackageID("0x1"); err != nil {
		t.Errorf("same id should be accepted: %v", err)
	}
	if _, err := p.WithPackageID("0x2"); err == nil {
		t.Error("package id must not change once set")
	}
}

func TestPackageDeployment_Extra(t *testing.T) {
	p := PackageDeployment{Name: "deepbook", Extras: map[string]string{"registry": "0xreg"}}

	if id, err := p.Extra("registry"); err != nil || id != "0xreg" {
		t.Errorf("Extra(registry) = %q, %v", id, err)
	}
	_, err := p.Extra("admin_cap")
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}
