package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "# comment\n" +
		"BRAGI_TEST_PLAIN=value\n" +
		"export BRAGI_TEST_EXPORTED=exported\n" +
		"BRAGI_TEST_QUOTED=\"with spaces\"\n" +
		"BRAGI_TEST_SINGLE='single'\n" +
		"not-a-pair\n" +
		"=no-key\n" +
		"BRAGI_TEST_EXISTING=from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("BRAGI_TEST_EXISTING", "from-env")
	for _, k := range []string{"BRAGI_TEST_PLAIN", "BRAGI_TEST_EXPORTED", "BRAGI_TEST_QUOTED", "BRAGI_TEST_SINGLE"} {
		os.Unsetenv(k)
		t.Cleanup(func() { os.Unsetenv(k) })
	}

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cases := map[string]string{
		"BRAGI_TEST_PLAIN":    "value",
		"BRAGI_TEST_EXPORTED": "exported",
		"BRAGI_TEST_QUOTED":   "with spaces",
		"BRAGI_TEST_SINGLE":   "single",
		"BRAGI_TEST_EXISTING": "from-env",
	}
	for k, want := range cases {
		if got := os.Getenv(k); got != want {
			t.Fatalf("%s=%q, want %q", k, got, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing file must be fine: %v", err)
	}
}
