package insper

import "testing"

func TestDisciplineCode(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"two lines", "Math\nMATH101", "MATH101"},
		{"single line", "Math", ""},
		{"trims whitespace", "Math\n  MATH101  ", "MATH101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := disciplineCode(tt.title); got != tt.want {
				t.Errorf("disciplineCode(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestInstructor(t *testing.T) {
	tests := []struct {
		name      string
		hoverInfo string
		want      string
	}{
		{"present", "Docente: Alice Smith", "Alice Smith"},
		{"absent", "no marker here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := instructor(tt.hoverInfo); got != tt.want {
				t.Errorf("instructor(%q) = %q, want %q", tt.hoverInfo, got, tt.want)
			}
		})
	}
}

func TestClassGroup(t *testing.T) {
	tests := []struct {
		name      string
		descricao string
		want      string
	}{
		{"present with delimiter", "Turma: 2024A | Dependencia: Lab 1", "2024A"},
		{"absent", "no marker", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classGroup(tt.descricao); got != tt.want {
				t.Errorf("classGroup(%q) = %q, want %q", tt.descricao, got, tt.want)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name      string
		descricao string
		want      string
	}{
		{"present", "Turma: 2024A | Dependencia: Lab 1", "Lab 1"},
		{"absent", "no marker", "NÃO INFORMADA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := location(tt.descricao); got != tt.want {
				t.Errorf("location(%q) = %q, want %q", tt.descricao, got, tt.want)
			}
		})
	}
}

func TestNormalizeEvent_IdentityUsesEventID(t *testing.T) {
	raw := rawEvent{
		ID:        nil,
		EventID:   "ev-A",
		Title:     "Math\nMATH101",
		HoverInfo: "Docente: Alice",
		Descricao: "Turma: T1 | Dependencia: Lab 1",
		StartDate: 1709550000000,
		EndDate:   1709557200000,
	}

	event := normalizeEvent(raw)

	if event.UpstreamEventID != "ev-A" {
		t.Errorf("UpstreamEventID = %q, want %q", event.UpstreamEventID, "ev-A")
	}
	if event.StartAt != 1709550000000/1000 {
		t.Errorf("StartAt = %d, want %d", event.StartAt, 1709550000000/1000)
	}
	if event.DisciplineCode != "MATH101" {
		t.Errorf("DisciplineCode = %q, want %q", event.DisciplineCode, "MATH101")
	}
	if event.Instructor != "Alice" {
		t.Errorf("Instructor = %q, want %q", event.Instructor, "Alice")
	}
	if event.ClassGroup != "T1" {
		t.Errorf("ClassGroup = %q, want %q", event.ClassGroup, "T1")
	}
	if event.Location != "Lab 1" {
		t.Errorf("Location = %q, want %q", event.Location, "Lab 1")
	}
}
