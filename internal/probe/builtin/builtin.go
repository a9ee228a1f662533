// Package builtin assembles the default probe set.
package builtin

import (
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/probe/exposure"
	"github.com/buemura/baseera/internal/probe/headers"
	"github.com/buemura/baseera/internal/probe/page"
)

// Probes returns fresh instances of every built-in probe in execution order.
func Probes() []probe.Probe {
	return []probe.Probe{
		page.NewXSS(),
		page.NewSQLInjection(),
		page.NewAPIKeys(),
		page.NewInsecureForms(),
		page.NewCommandInjection(),
		headers.NewMissingCSP(),
		headers.NewWeakCSP(),
		headers.NewMissingHSTS(),
		page.NewInsecureCookies(),
		headers.NewCORS(),
		exposure.NewSensitiveFiles(),
		page.NewDebugPages(),
		exposure.NewOpenRedirect(),
		page.NewMixedContent(),
		page.NewMissingSRI(),
		page.NewDeprecatedHTML(),
		page.NewTrackers(),
		page.NewCSRF(),
		headers.NewClickjacking(),
	}
}

// Registry returns a registry holding every built-in probe, with the named
// probes disabled. Unknown names are an error.
func Registry(disabled ...string) (*probe.Registry, error) {
	r := probe.NewRegistry()
	for _, p := range Probes() {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	for _, name := range disabled {
		if err := r.SetEnabled(name, false); err != nil {
			return nil, err
		}
	}
	return r, nil
}
