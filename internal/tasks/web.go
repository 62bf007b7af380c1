package tasks

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

const defaultPortalTimeout = 2 * time.Minute

// WebGroup returns the browser scripting group.
func WebGroup() *Group {
	return NewGroup("web", nil,
		NewFunc("portal_login", "Navigate to a portal and click through a selector sequence", portalLogin),
	)
}

// portalLogin drives a Chrome instance through a portal entry flow: open
// the URL, then for each selector wait until it is visible and click it.
// The clicks kwarg is an ordered list of CSS selectors.
func portalLogin(ctx context.Context, in Input) (any, error) {
	url, ok := in.GetString("url")
	if !ok || url == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "portal_login requires a url kwarg")
	}

	clicks, err := selectorList(in.Kwargs["clicks"])
	if err != nil {
		return nil, err
	}

	timeout := defaultPortalTimeout
	if raw, ok := in.GetString("timeout"); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid timeout %q: %s", raw, err.Error()).WithCause(err)
		}
		timeout = d
	}
	headless := in.GetBool("headless", true)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	for _, sel := range clicks {
		actions = append(actions,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery),
		)
	}

	var finalURL string
	actions = append(actions, chromedp.Location(&finalURL))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTaskExecution,
			"portal flow failed: %s", err.Error()).WithCause(err)
	}

	return map[string]any{
		"portal_ok": true,
		"final_url": finalURL,
	}, nil
}

func selectorList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, schema.NewError(schema.ErrCodeValidation,
					"clicks must be a list of non-empty selectors")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, schema.NewError(schema.ErrCodeValidation,
			"clicks must be a list of selectors")
	}
}
