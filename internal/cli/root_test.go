package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/roach88/hbnb/internal/storage/filestore"
	_ "github.com/roach88/hbnb/internal/storage/sqlstore"
)

// useFileStorage points the configuration at a fresh JSON file.
func useFileStorage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.json")
	t.Setenv("HBNB_TYPE_STORAGE", "file")
	t.Setenv("HBNB_FILE_PATH", path)
	return path
}

// runCLI executes the root command and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// mustRun executes the command and requires success.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "hbnb %s\n%s", strings.Join(args, " "), out)
	return out
}

// runJSON executes the command with --format json and decodes the envelope.
func runJSON(t *testing.T, args ...string) (CLIResponse, error) {
	t.Helper()
	out, err := runCLI(t, append(args, "--format", "json")...)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func createID(t *testing.T, args ...string) string {
	t.Helper()
	return strings.TrimSpace(mustRun(t, append([]string{"create"}, args...)...))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "hbnb", cmd.Use)
	assert.Contains(t, cmd.Long, "persistence engine")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"create", "show", "all", "count", "update", "destroy",
		"link", "unlink", "children", "amenities", "stats", "scenario"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	useFileStorage(t)
	out, err := runCLI(t, "count", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid format")
}

func TestCreateAndShow(t *testing.T) {
	useFileStorage(t)
	id := createID(t, "State", `name="California"`)
	require.NotEmpty(t, id)

	out := mustRun(t, "show", "State", id)
	assert.True(t, strings.HasPrefix(out, "[State] ("+id+") "))
	assert.Contains(t, out, `"name":"California"`)

	out = mustRun(t, "show", "states", id)
	assert.Contains(t, out, id, "table names are accepted as kinds")
}

func TestCreate_ParsesTypedAttributes(t *testing.T) {
	useFileStorage(t)
	resp, err := runJSON(t, "create", "Place",
		`name="My_little_house"`, "number_rooms=4", "latitude=37.77", "max_guest=lots", `id="forced"`)
	require.NoError(t, err)

	rec, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Place", rec["__class__"])
	assert.Equal(t, "My little house", rec["name"])
	assert.Equal(t, float64(4), rec["number_rooms"])
	assert.Equal(t, 37.77, rec["latitude"])
	assert.Equal(t, float64(0), rec["max_guest"], "unparseable values are skipped")
	assert.NotEqual(t, "forced", rec["id"])
}

func TestCreate_WrongTypeIsCommandError(t *testing.T) {
	useFileStorage(t)
	out, err := runCLI(t, "create", "State", "name=5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "name")
}

func TestShow_Missing(t *testing.T) {
	useFileStorage(t)
	out, err := runCLI(t, "show", "State", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "** no instance found **\n", out)

	resp, err := runJSON(t, "show", "State", "nope")
	require.Error(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestUnknownClass(t *testing.T) {
	useFileStorage(t)
	out, err := runCLI(t, "all", "Planet")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "** class doesn't exist **\n", out)
}

func TestAllAndCount(t *testing.T) {
	useFileStorage(t)
	createID(t, "State", `name="Nevada"`)
	createID(t, "State", `name="Oregon"`)
	createID(t, "Amenity", `name="Wifi"`)

	out := mustRun(t, "all")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	resp, err := runJSON(t, "all", "State")
	require.NoError(t, err)
	records, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, records, 2)

	assert.Equal(t, "2\n", mustRun(t, "count", "State"))
	assert.Equal(t, "3\n", mustRun(t, "count"))
}

func TestUpdate(t *testing.T) {
	useFileStorage(t)
	id := createID(t, "Place", `name="Loft"`)

	mustRun(t, "update", "Place", id, "max_guest=6", `description="Sea_view"`, `city_id="elsewhere"`)

	resp, err := runJSON(t, "show", "Place", id)
	require.NoError(t, err)
	rec := resp.Data.(map[string]any)
	assert.Equal(t, float64(6), rec["max_guest"])
	assert.Equal(t, "Sea view", rec["description"])
	assert.Equal(t, "", rec["city_id"], "owner references cannot be patched")

	out, err := runCLI(t, "update", "Place", id, `max_guest="six"`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "max_guest")

	_, err = runCLI(t, "update", "Place", "missing", "max_guest=1")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDestroyCascades(t *testing.T) {
	useFileStorage(t)
	state := createID(t, "State", `name="California"`)
	city := createID(t, "City", `state_id="`+state+`"`, `name="San_Francisco"`)

	out := mustRun(t, "children", "State", state, "City")
	assert.Contains(t, out, city)

	mustRun(t, "destroy", "State", state)
	assert.Equal(t, "0\n", mustRun(t, "count", "City"))
	assert.Equal(t, "0\n", mustRun(t, "count"))
}

func TestChildren_UnrelatedKinds(t *testing.T) {
	useFileStorage(t)
	state := createID(t, "State", `name="Maine"`)
	_, err := runCLI(t, "children", "State", state, "Review")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLinkAndAmenities(t *testing.T) {
	useFileStorage(t)
	place := createID(t, "Place", `name="Loft"`)
	wifi := createID(t, "Amenity", `name="Wifi"`)

	mustRun(t, "link", place, wifi)
	mustRun(t, "link", place, wifi)

	out := mustRun(t, "amenities", place)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
	assert.Contains(t, out, "[Amenity] ("+wifi+")")

	out = mustRun(t, "amenities", "--places", wifi)
	assert.Contains(t, out, "[Place] ("+place+")")

	mustRun(t, "unlink", place, wifi)
	assert.Empty(t, mustRun(t, "amenities", place))

	resp, err := runJSON(t, "link", place, "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "REFERENTIAL", resp.Error.Code)
}

func TestStats(t *testing.T) {
	useFileStorage(t)
	createID(t, "User", `email="a@b.c"`, `password="pw"`)
	createID(t, "Amenity", `name="Wifi"`)

	resp, err := runJSON(t, "stats")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"amenities": float64(1), "cities": float64(0), "places": float64(0),
		"reviews": float64(0), "states": float64(0), "users": float64(1),
	}, resp.Data)

	out := mustRun(t, "stats")
	assert.Contains(t, out, "users: 1\n")
}

func TestDatabaseBackend(t *testing.T) {
	t.Setenv("HBNB_TYPE_STORAGE", "db")
	t.Setenv("HBNB_DB_DRIVER", "sqlite3")
	t.Setenv("HBNB_DB_DSN", filepath.Join(t.TempDir(), "hbnb.db"))

	id := createID(t, "State", `name="Texas"`)
	out := mustRun(t, "show", "State", id)
	assert.Contains(t, out, `"name":"Texas"`)
	assert.Equal(t, "1\n", mustRun(t, "count", "State"))
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hbnb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: tape\n"), 0o644))

	out, err := runCLI(t, "count", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid configuration")
}

func TestExecuteWith_CobraErrorsGoToErrWriter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := ExecuteWith([]string{"teleport"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), `Error: unknown command "teleport"`)
	assert.Empty(t, stdout.String())

	stderr.Reset()
	code = ExecuteWith([]string{"show", "State"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "Error: accepts 2 arg(s)")
}

func TestExecuteWith_ReportedErrorsAreNotRepeated(t *testing.T) {
	useFileStorage(t)
	var stdout, stderr bytes.Buffer
	code := ExecuteWith([]string{"show", "State", "missing"}, &stdout, &stderr)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout.String(), "no instance found")
	assert.NotContains(t, stderr.String(), "Error:")
}
