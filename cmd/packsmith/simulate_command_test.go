package main

import (
	"path/filepath"
	"strings"
	"testing"

	"packsmith/internal/codec"
	"packsmith/internal/nav"
)

const simDoc = `{
  "format": "packsmith-story",
  "version": 1,
  "uuid": "7d8c9a4e-2f31-4b8a-9c5d-0e1f2a3b4c5d",
  "title": "Les deux contes",
  "stages": [
    {
      "id": "cover",
      "kind": "entrypoint",
      "name": "Couverture",
      "audio": "cover.mp3",
      "okTransition": { "action": "choose", "option": -1 },
      "controls": { "wheel": true, "ok": true, "autoplay": true }
    },
    {
      "id": "foret",
      "kind": "story",
      "name": "La foret",
      "storyAudio": "foret.mp3",
      "controls": { "home": true, "pause": true }
    },
    {
      "id": "mer",
      "kind": "story",
      "name": "La mer",
      "storyAudio": "mer.mp3",
      "controls": { "home": true, "pause": true }
    }
  ],
  "actions": [
    { "id": "choose", "options": ["foret", "mer"] }
  ]
}`

func writeSimDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.json")
	mustWrite(t, path, []byte(simDoc))
	return path
}

func TestSimulateScriptedInputs(t *testing.T) {
	path := writeSimDoc(t)
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "simulate", path, "--inputs", "right,ok,home")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	requireContains(t, out, "pack: Les deux contes")
	requireContains(t, out, "at: Couverture")
	requireContains(t, out, "> 2. La mer")
	requireContains(t, out, "at: Couverture > La mer")
	requireContains(t, out, "story playing")
	requireContains(t, out, "[home]")
}

func TestSimulateAutoEntersMenu(t *testing.T) {
	path := writeSimDoc(t)
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "simulate", path, "--auto")
	if err != nil {
		t.Fatalf("simulate --auto: %v", err)
	}
	requireContains(t, out, "auto: enter menu (2 options)")
	requireContains(t, out, "at: Couverture > La foret")
}

func TestSimulateDisabledInputReported(t *testing.T) {
	path := writeSimDoc(t)
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "simulate", path, "--inputs", "home")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	requireContains(t, out, "[home] not available here")
}

func TestSimulateUnknownInputWord(t *testing.T) {
	path := writeSimDoc(t)
	configPath, _ := writeTestConfig(t)

	_, _, err := runCLI(t, configPath, "simulate", path, "--inputs", "sideways")
	if err == nil || !strings.Contains(err.Error(), "unknown input") {
		t.Fatalf("want unknown input error, got %v", err)
	}
}

func TestSimulateInstalledPack(t *testing.T) {
	root := newDeviceRoot(t, testPack)
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "simulate", root, codec.Reference(testPack), "--inputs", "ok")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	requireContains(t, out, "at: Suzanne et Gaston > Story 1")
}

func TestParseInputWords(t *testing.T) {
	seq, err := parseInputs("ok, right left")
	if err != nil {
		t.Fatalf("parse inputs: %v", err)
	}
	want := []nav.Input{nav.Confirm, nav.MoveRight, nav.MoveLeft}
	if len(seq) != len(want) {
		t.Fatalf("got %d inputs, want %d", len(seq), len(want))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("input %d: got %v, want %v", i, seq[i], want[i])
		}
	}

	empty, err := parseInputs("")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty spec: got %v, %v", empty, err)
	}
}
