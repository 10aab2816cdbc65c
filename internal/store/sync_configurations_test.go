package store

import "testing"

func TestSyncConfiguration_ShouldSyncEventKind(t *testing.T) {
	cfg := &SyncConfiguration{ExcludedEventKinds: []string{"PROVA", "FERIADO"}}

	tests := []struct {
		name string
		kind string
		want bool
	}{
		{"excluded", "PROVA", false},
		{"not excluded", "AULA", true},
		{"empty deny-list entry never matches empty kind", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ShouldSyncEventKind(tt.kind); got != tt.want {
				t.Errorf("ShouldSyncEventKind(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestSyncConfiguration_ShouldSyncDiscipline(t *testing.T) {
	cfg := &SyncConfiguration{ExcludedDisciplines: []string{"MATH101"}}

	tests := []struct {
		name string
		code string
		want bool
	}{
		{"excluded", "MATH101", false},
		{"not excluded", "PHYS201", true},
		{"no discipline code", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ShouldSyncDiscipline(tt.code); got != tt.want {
				t.Errorf("ShouldSyncDiscipline(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestUser_CanSync(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{
			name: "all flags set",
			user: User{EmailVerified: true, PortalCredentialsSet: true, DownstreamConnected: true, Active: true},
			want: true,
		},
		{
			name: "missing one flag",
			user: User{EmailVerified: true, PortalCredentialsSet: true, DownstreamConnected: false, Active: true},
			want: false,
		},
		{
			name: "no flags set",
			user: User{},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.CanSync(); got != tt.want {
				t.Errorf("CanSync() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status SessionStatus
		want   bool
	}{
		{SessionRunning, false},
		{SessionCompleted, true},
		{SessionFailed, true},
		{SessionPartial, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}
