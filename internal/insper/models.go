package insper

// UserData is the identity payload the portal carries in the
// base64-encoded "user-data" login cookie. Extra fields the payload may
// carry are discarded silently (forward-compatible deserialisation).
type UserData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Login string `json:"login"`
	Roles string `json:"roles"`
	Root  bool   `json:"root"`
	Theme string `json:"theme"`
	// SenhaAlterada is semantically boolean but arrives as the literal
	// string "true"/"false" from the portal.
	SenhaAlterada string `json:"senhaAlterada"`
}

// AcademicData is the caller's student record, the first element of
// the paged envelope returned by the profile endpoint. Only the fields
// the reconciler uses are extracted; unknown fields are ignored.
type AcademicData struct {
	ID         string `json:"id"`
	Matricula  string `json:"matricula"`
	CodAluno   string `json:"codAluno"`
	NomeAluno  string `json:"nomeAluno"`
	CodCurso   string `json:"codCurso"`
	NomeCurso  string `json:"nomeCurso"`
	Turma      string `json:"turma"`
	Serie      string `json:"serie"`
	Ano        string `json:"ano"`
	Semestre   string `json:"semestre"`
}

// profileEnvelope is the paged response shape of the profile endpoint.
type profileEnvelope struct {
	Content []AcademicData `json:"content"`
	Page    map[string]any `json:"page"`
}

// rawEvent is the upstream calendar API's per-event JSON shape.
type rawEvent struct {
	ID              *string `json:"id"`
	Title           string  `json:"title"`
	AllDay          bool    `json:"allDay"`
	StartStr        string  `json:"startStr"`
	EndStr          string  `json:"endStr"`
	StartDate       int64   `json:"startDate"`
	EndDate         int64   `json:"endDate"`
	TimeZone        string  `json:"timeZone"`
	Descricao       string  `json:"descricao"`
	Icone           string  `json:"icone"`
	EventID         string  `json:"eventId"`
	TipoEvento      string  `json:"tipoEvento"`
	HoverInfo       string  `json:"hoverInfo"`
	ClassName       string  `json:"className"`
	URL             *string `json:"url"`
	NomeSubciplina  *string `json:"nomeSubdisciplina"`
}

// calendarResponse is the paged envelope the monthly event listing
// returns.
type calendarResponse struct {
	Content []rawEvent     `json:"content"`
	Page    map[string]any `json:"page"`
}

// Event is a normalised upstream calendar entry, ready to be diffed and
// persisted as an UpstreamEvent.
type Event struct {
	UpstreamEventID string // the "eventId" field, NOT "id"
	Title           string
	Description     string
	StartAt         int64 // seconds since epoch
	EndAt           int64
	AllDay          bool
	DisciplineCode  string
	Instructor      string
	ClassGroup      string
	Location        string
	EventKind       string
	Timezone        string
	RawPayload      []byte
}
