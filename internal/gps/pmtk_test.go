package gps

import (
	"bytes"
	"testing"
)

func TestCommand_KnownChecksums(t *testing.T) {
	cases := map[string]string{
		pmtkUpdate1Hz:       "$PMTK220,1000*1F\r\n",
		pmtkOutputRMCGGAGSA: "$PMTK314,0,1,0,1,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0*29\r\n",
	}
	for body, want := range cases {
		if got := string(Command(body)); got != want {
			t.Fatalf("Command(%q)=%q want %q", body, got, want)
		}
	}
}

func TestConfigurePMTK(t *testing.T) {
	var buf bytes.Buffer
	if err := ConfigurePMTK(&buf); err != nil {
		t.Fatalf("ConfigurePMTK: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("$PMTK314")) || !bytes.HasSuffix(buf.Bytes(), []byte("$PMTK220,1000*1F\r\n")) {
		t.Fatalf("output=%q", buf.String())
	}
	// Every command must parse as a valid sentence.
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\r\n")) {
		if _, err := parseSentence(line); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
	}
}
