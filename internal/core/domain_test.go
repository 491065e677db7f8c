package core

import "testing"

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr error
	}{
		{"valid", Item{Name: "Widget", Cost: 5}, nil},
		{"empty name", Item{Name: "", Cost: 5}, ErrEmptyName},
		{"whitespace name", Item{Name: "   ", Cost: 5}, ErrEmptyName},
		{"zero cost", Item{Name: "Widget", Cost: 0}, ErrNonPositiveCost},
		{"negative cost", Item{Name: "Widget", Cost: -3}, ErrNonPositiveCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.item.Validate(); err != tt.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOtherCostValidate(t *testing.T) {
	tests := []struct {
		name    string
		cost    OtherCost
		wantErr error
	}{
		{"valid", OtherCost{Description: "Shipping", Amount: 2.5}, nil},
		{"empty description", OtherCost{Description: "", Amount: 2.5}, ErrEmptyDescription},
		{"zero amount", OtherCost{Description: "Shipping", Amount: 0}, ErrNonPositiveCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cost.Validate(); err != tt.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"a@b.co", true},
		{"", false},
		{"no-at-sign", false},
		{"@example.com", false},
		{"user@nodot", false},
		{"user@dot.", false},
		{"two@@example.com", false},
		{"spa ce@example.com", false},
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
