package classify

import "testing"

func TestClassify_PositiveWithoutNegativeIsKept(t *testing.T) {
	c := NewDefault()

	cases := []struct {
		name  string
		title string
		desc  string
	}{
		{"english graduate", "Graduate Software Engineer", "Join our 2026 graduate programme."},
		{"english junior", "Junior Developer", "Great first role for someone starting out."},
		{"english entry level", "Software Engineer", "This is an entry-level position."},
		{"french jeune diplome", "Consultant", "Poste ouvert aux jeunes diplômés."},
		{"french alternance", "Développeur en alternance", "Contrat d'alternance de 12 mois."},
		{"german werkstudent", "Werkstudent Data Engineering", "Flexible Arbeitszeiten."},
		{"german absolvent", "Softwareentwickler", "Ideal für Absolventen der Informatik."},
		{"spanish practicas", "Analista de datos", "Programa de prácticas remuneradas."},
		{"italian neolaureato", "Data Analyst", "Cerchiamo neolaureati in discipline STEM."},
		{"dutch starter", "Consultant", "Leuke startersfunctie voor afgestudeerden."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !c.Classify(tc.title, tc.desc) {
				t.Errorf("expected keep for %q / %q", tc.title, tc.desc)
			}
		})
	}
}

func TestClassify_NegativeTermFlipsResult(t *testing.T) {
	c := NewDefault()

	// Monotonicity: each text is kept on its own; appending a seniority
	// phrase must flip the verdict.
	base := []struct {
		name  string
		title string
		desc  string
		neg   string
	}{
		{"senior in title", "Junior Developer", "Great team.", " Senior leadership exposure required."},
		{"years of experience", "Graduate Engineer", "Work on our platform.", " Requires 5+ years experience."},
		{"ten years", "Junior Analyst", "Entry-level analytics.", " 10+ years in the field."},
		{"principal", "Trainee Consultant", "Structured programme.", " Reports to the Principal Consultant... principal-level judgement expected."},
		{"german seniority", "Werkstudent", "Tolle Kultur.", " Mehrjährige Erfahrung erforderlich."},
		{"french seniority", "Stagiaire marketing", "Stage de 6 mois.", " Profil expérimenté souhaité."},
	}

	for _, tc := range base {
		t.Run(tc.name, func(t *testing.T) {
			if !c.Classify(tc.title, tc.desc) {
				t.Fatalf("precondition failed: base text should be kept")
			}
			if c.Classify(tc.title, tc.desc+tc.neg) {
				t.Errorf("expected negative term %q to flip result", tc.neg)
			}
		})
	}
}

func TestClassify_AmbiguousRejectedByDefault(t *testing.T) {
	c := NewDefault()

	// No positive evidence at all: reject.
	if c.Classify("Software Engineer", "We build distributed systems in Go.") {
		t.Error("posting without early-career evidence should be rejected")
	}
}

func TestClassify_NegativeInBodyOverridesPositiveTitle(t *testing.T) {
	c := NewDefault()

	// Title looks junior, body demands seniority. Reject.
	if c.Classify("Junior Platform Engineer", "Minimum 7 years experience with Kubernetes.") {
		t.Error("years-of-experience requirement in body should reject the posting")
	}
}

func TestClassify_MalformedInputRejected(t *testing.T) {
	c := NewDefault()

	if c.Classify("", "graduate role, junior friendly") {
		t.Error("empty title should be rejected without classification")
	}
	if c.Classify("   ", "junior role") {
		t.Error("whitespace-only title should be rejected")
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewDefault()
	title, desc := "Graduate Data Engineer", "Junior role, no experience required."
	first := c.Classify(title, desc)
	for i := 0; i < 10; i++ {
		if c.Classify(title, desc) != first {
			t.Fatal("classification is not deterministic")
		}
	}
}

func TestNew_EmptyTermListRejected(t *testing.T) {
	if _, err := New(nil, DefaultNegativeTerms); err == nil {
		t.Error("expected error for empty positive term list")
	}
	if _, err := New(DefaultPositiveTerms, nil); err == nil {
		t.Error("expected error for empty negative term list")
	}
}
