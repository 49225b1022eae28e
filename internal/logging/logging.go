// Package logging wires up the structured logger and colored startup
// banner shared by both binaries, replacing the teacher's bare
// log.Printf("[INFO]\t...") tagging with logrus fields while keeping its
// habit of logging every accept/connect/transfer.
package logging

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/colorstring"
	"github.com/sirupsen/logrus"
)

// New returns a logger entry for role, tagged with a fresh run ID so a
// peer's seed-side and leech-side log lines can be correlated across a
// single process lifetime.
func New(role string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return l.WithFields(logrus.Fields{
		"role":   role,
		"run_id": uuid.NewString(),
	})
}

// Banner prints a colored one-line startup banner, grounded on the
// teacher's habit of announcing what it's doing before it blocks on I/O.
func Banner(role, addr string) {
	colorstring.Println(fmt.Sprintf("[bold][green]torrentesque[reset] starting %s on [yellow]%s[reset]", role, addr))
}
</content>
