package guard

import "testing"

var (
	testSubjectKeywords    = []string{"materia", "materias", "carrera", "carreras"}
	testIdentifierKeywords = []string{"legajo"}
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		text           string
		subjectKeyword bool
		identifierCue  bool
		identifier     string
	}{
		{
			name:           "keyword and identifier keyword with number",
			text:           "qué materias doy, legajo 50443",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "50443",
		},
		{
			name:           "keyword and bare digit run",
			text:           "qué materias tiene el 50443",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "50443",
		},
		{
			name:           "keyword only, no identifier",
			text:           "qué materias doy",
			subjectKeyword: true,
			identifierCue:  false,
			identifier:     "",
		},
		{
			name:           "upper-case accented keyword",
			text:           "QUÉ MATERIAS DOY, LEGAJO 50443",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "50443",
		},
		{
			name:           "identifier keyword without number",
			text:           "mis materias, mi legajo no lo recuerdo",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "",
		},
		{
			name:           "bare identifier without subject keyword",
			text:           "Mi legajo es 50443",
			subjectKeyword: false,
			identifierCue:  true,
			identifier:     "50443",
		},
		{
			name:           "accented keyword matches folded",
			text:           "¿QUÉ CARRERA tengo? legajo 1234",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "1234",
		},
		{
			name:           "keyword-adjacent run preferred over earlier run",
			text:           "en el aula 2024 cargué mi materia, legajo 50443",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "50443",
		},
		{
			name:           "colon between keyword and number",
			text:           "materias del legajo: 61007",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "61007",
		},
		{
			name:           "three digits too short",
			text:           "materias del legajo 123",
			subjectKeyword: true,
			identifierCue:  true, // keyword cue still fires
			identifier:     "",
		},
		{
			name:           "seven digits too long",
			text:           "materias del 1234567",
			subjectKeyword: true,
			identifierCue:  false,
			identifier:     "",
		},
		{
			name:           "greeting",
			text:           "hola, buenos días",
			subjectKeyword: false,
			identifierCue:  false,
			identifier:     "",
		},
		{
			name:           "singular carrera",
			text:           "a qué carrera pertenezco, legajo 4321",
			subjectKeyword: true,
			identifierCue:  true,
			identifier:     "4321",
		},
		{
			name:           "digits embedded in word not standalone",
			text:           "materias de abc12345def",
			subjectKeyword: true,
			identifierCue:  false,
			identifier:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sig := Detect(tt.text, testSubjectKeywords, testIdentifierKeywords)

			if sig.SubjectKeyword != tt.subjectKeyword {
				t.Errorf("SubjectKeyword = %v, want %v", sig.SubjectKeyword, tt.subjectKeyword)
			}
			if sig.IdentifierCue != tt.identifierCue {
				t.Errorf("IdentifierCue = %v, want %v", sig.IdentifierCue, tt.identifierCue)
			}
			if sig.Identifier != tt.identifier {
				t.Errorf("Identifier = %q, want %q", sig.Identifier, tt.identifier)
			}
		})
	}
}

func TestSignals_Sensitive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sig  Signals
		want bool
	}{
		{Signals{SubjectKeyword: true, IdentifierCue: true, Identifier: "50443"}, true},
		{Signals{SubjectKeyword: true, Identifier: "50443"}, true},
		{Signals{SubjectKeyword: true, IdentifierCue: true}, false},
		{Signals{SubjectKeyword: false, IdentifierCue: true, Identifier: "50443"}, false},
		{Signals{}, false},
	}

	for _, tt := range tests {
		if got := tt.sig.Sensitive(); got != tt.want {
			t.Errorf("Sensitive(%+v) = %v, want %v", tt.sig, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Qué", "que"},
		{"INFORMACIÓN", "informacion"},
		{"carrera", "carrera"},
		{"Análisis Matemático", "analisis matematico"},
	}

	for _, tt := range tests {
		if got := fold(tt.in); got != tt.want {
			t.Errorf("fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
