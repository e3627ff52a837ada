package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"reflect"
	"testing"
	"time"

	"github.com/newsbreeze/news-gateway/internal/config"
)

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
		want   string
	}{
		{"no voices", nil, ""},
		{"no english", []Voice{{Name: "Google Français", Lang: "fr-FR"}}, ""},
		{"english without vendor", []Voice{{Name: "Alex", Lang: "en-US"}}, ""},
		{
			"first match wins",
			[]Voice{
				{Name: "Alex", Lang: "en-US"},
				{Name: "Microsoft Aria Online (Natural)", Lang: "en-US"},
				{Name: "Google US English", Lang: "en-US"},
			},
			"Microsoft Aria Online (Natural)",
		},
		{"natural", []Voice{{Name: "Natural Voice", Lang: "en"}}, "Natural Voice"},
		{"case sensitive vendor", []Voice{{Name: "google voice", Lang: "en-US"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectVoice(tt.voices)
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected default voice, got %+v", got)
				}
				return
			}
			if got == nil || got.Name != tt.want {
				t.Errorf("Expected %q, got %+v", tt.want, got)
			}
		})
	}
}

func TestEspeakArgs(t *testing.T) {
	got := espeakArgs(NewUtterance("hello", &Voice{Name: "en-us", Lang: "en-us"}))
	want := []string{"-s", "157", "-p", "55", "-a", "100", "-v", "en-us", "--stdin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	got = espeakArgs(Utterance{Rate: 1, Pitch: 3, Volume: 0.5})
	want = []string{"-s", "175", "-p", "99", "-a", "50", "--stdin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParseEspeakVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-gb           --/M      English_(Great_Britain) gmw/en               (en 2)
 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)

garbage line
`)
	want := []Voice{
		{Name: "Afrikaans", Lang: "af"},
		{Name: "English_(Great_Britain)", Lang: "en-gb"},
		{Name: "English_(America)", Lang: "en-us"},
	}
	if got := parseEspeakVoices(out); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCommandEngine_ExitStatus(t *testing.T) {
	for _, bin := range []string{"true", "false"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}

	if err := NewCommandEngine("true").Speak(context.Background(), NewUtterance("hi", nil)); err != nil {
		t.Errorf("Expected success, got %v", err)
	}

	err := NewCommandEngine("false").Speak(context.Background(), NewUtterance("hi", nil))
	var se *SynthesisError
	if !errors.As(err, &se) || se.Code != "exit_1" {
		t.Errorf("Expected exit_1, got %v", err)
	}
}

func TestCommandEngine_MissingBinary(t *testing.T) {
	err := NewCommandEngine("/nonexistent/espeak-ng").Speak(context.Background(), NewUtterance("hi", nil))
	var se *SynthesisError
	if !errors.As(err, &se) || se.Code != CodeUnavailable {
		t.Errorf("Expected %s, got %v", CodeUnavailable, err)
	}
}

func TestRemoteEngine_Speak(t *testing.T) {
	var got RemoteSpeakRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speak" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	engine := NewRemoteEngine(server.URL+"/", "secret")
	err := engine.Speak(context.Background(), NewUtterance("Read me", &Voice{Name: "Google US English"}))
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	want := RemoteSpeakRequest{Text: "Read me", Voice: "Google US English", Rate: 0.9, Pitch: 1.1, Volume: 1.0}
	if got != want {
		t.Errorf("Expected request %+v, got %+v", want, got)
	}
	if engine.IsActive() {
		t.Error("Expected engine to be idle after Speak returns")
	}
}

func TestRemoteEngine_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewRemoteEngine(server.URL, "").Speak(context.Background(), NewUtterance("x", nil))
	var se *SynthesisError
	if !errors.As(err, &se) || se.Code != "http_429" {
		t.Errorf("Expected http_429, got %v", err)
	}
}

func TestRemoteEngine_Cancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	engine := NewRemoteEngine(server.URL, "")
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Speak(context.Background(), NewUtterance("x", nil))
	}()

	deadline := time.Now().Add(time.Second)
	for !engine.IsActive() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	engine.Cancel()

	select {
	case err := <-errCh:
		var se *SynthesisError
		if !errors.As(err, &se) || se.Code != CodeInterrupted {
			t.Errorf("Expected %s, got %v", CodeInterrupted, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after Cancel")
	}
}

func TestRemoteEngine_Voices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"name":"Google US English","lang":"en-US"},{"name":"Anna","lang":"de-DE"}]`))
	}))
	defer server.Close()

	voices, err := NewRemoteEngine(server.URL, "").Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 2 || voices[0].Name != "Google US English" || voices[1].Lang != "de-DE" {
		t.Errorf("Unexpected voices: %+v", voices)
	}
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{config.Config{SpeechEngine: config.SpeechEngineSilent}, "silent", false},
		{config.Config{SpeechEngine: config.SpeechEngineEspeak}, "espeak", false},
		{config.Config{SpeechEngine: config.SpeechEngineRemote, SpeechAPIURL: "http://tts"}, "remote", false},
		{config.Config{SpeechEngine: config.SpeechEngineRemote}, "", true},
		{config.Config{SpeechEngine: "festival"}, "", true},
	}

	for _, tt := range tests {
		engine, err := NewEngine(&tt.cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.cfg.SpeechEngine)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.cfg.SpeechEngine, err)
			continue
		}
		if engine.Name() != tt.want {
			t.Errorf("Expected engine %s, got %s", tt.want, engine.Name())
		}
	}
}
