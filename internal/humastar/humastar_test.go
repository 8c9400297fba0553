package humastar

import "testing"

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"layerid":"cities","featureid":42,"zoom":7}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.String("layerid"); got != "cities" {
		t.Errorf("layerid = %q", got)
	}
	if got := s.String("featureid"); got != "42" {
		t.Errorf("featureid = %q", got)
	}
	if got := s.Int("zoom"); got != 7 {
		t.Errorf("zoom = %d", got)
	}
	if got := s.String("missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}

func TestSignalsInputMustParse(t *testing.T) {
	in := &SignalsInput{RawBody: []byte("{not json")}
	if _, err := in.MustParse(); err == nil {
		t.Fatal("expected error")
	}
}
