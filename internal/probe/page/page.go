// Package page implements probes that inspect the loaded document through a
// probe.PageInspector.
package page

import (
	"context"
	"errors"
	"net/url"
	"sort"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/pkg/types"
)

func newBase(typeID int, name string) probe.Base {
	return probe.NewBase(typeID, name, severity.Classify(typeID))
}

// evaluate runs script and decodes into out. A failed page capability is
// reported as ok=false with no error so the probe yields no findings;
// anything else, such as cancellation, is returned.
func evaluate(ctx context.Context, ec probe.PageInspector, script string, out any) (bool, error) {
	if err := ec.Evaluate(ctx, script, out); err != nil {
		var capErr *probe.CapabilityError
		if errors.As(err, &capErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type param struct {
	key, value string
}

// queryParams returns the query parameters of rawURL in a stable order:
// by key, then by position.
func queryParams(rawURL string) []param {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []param
	for _, k := range keys {
		for _, v := range q[k] {
			out = append(out, param{k, v})
		}
	}
	return out
}

// pageURL prefers the document's own URL, which reflects redirects, over the
// requested one.
func pageURL(doc string, target types.Target) string {
	if doc != "" {
		return doc
	}
	return target.URL
}
