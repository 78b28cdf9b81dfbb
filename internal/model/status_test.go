package model

import "testing"

func TestItemStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   ItemStatus
		expected bool
	}{
		{StatusQueued, false},
		{StatusDownloading, true},
		{StatusPaused, false},
		{StatusCompleted, false},
		{StatusFailed, false},
		{StatusCanceled, false},
	}

	for _, test := range tests {
		result := test.status.IsActive()
		if result != test.expected {
			t.Errorf("ItemStatus(%s).IsActive() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestItemStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   ItemStatus
		expected bool
	}{
		{StatusQueued, false},
		{StatusDownloading, false},
		{StatusPaused, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCanceled, true},
	}

	for _, test := range tests {
		result := test.status.IsTerminal()
		if result != test.expected {
			t.Errorf("ItemStatus(%s).IsTerminal() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestItemStatus_String(t *testing.T) {
	status := StatusDownloading
	expected := "Downloading"
	result := status.String()

	if result != expected {
		t.Errorf("ItemStatus.String() = %s, expected %s", result, expected)
	}
}

func TestPriority_Elevated(t *testing.T) {
	tests := []struct {
		priority Priority
		expected bool
	}{
		{PriorityLow, false},
		{PriorityNormal, false},
		{PriorityHigh, true},
		{PriorityCritical, true},
	}

	for _, test := range tests {
		result := test.priority.Elevated()
		if result != test.expected {
			t.Errorf("Priority(%s).Elevated() = %v, expected %v", test.priority, result, test.expected)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input    string
		expected Priority
		wantErr  bool
	}{
		{"low", PriorityLow, false},
		{"normal", PriorityNormal, false},
		{"", PriorityNormal, false},
		{"high", PriorityHigh, false},
		{"critical", PriorityCritical, false},
		{"urgent", PriorityNormal, true},
	}

	for _, test := range tests {
		result, err := ParsePriority(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
		}
		if result != test.expected {
			t.Errorf("ParsePriority(%q) = %s, expected %s", test.input, result, test.expected)
		}
	}
}
