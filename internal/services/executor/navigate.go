package executor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arca/internal/interfaces"
	"github.com/ternarybob/arca/internal/models"
)

// nextLinkTexts are matched against anchor text when the strategy has
// no structural next selector.
var nextLinkTexts = []string{"next", "next page", "more", "load more", "older", ">", "»", "→"}

// snapshotRefresher is implemented by browser-backed pages that can
// re-capture the DOM after scripted scrolling.
type snapshotRefresher interface {
	RefreshSnapshot(ctx context.Context) error
}

// navigate advances to the next result page. Returns false when the
// site has no further page; an error means navigation itself broke.
func (s *Service) navigate(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy, pageNum int, scrolls *int) (bool, error) {
	switch strategy.Navigation.Method {
	case models.NavMethodClickNext:
		return s.clickNext(ctx, page, strategy)
	case models.NavMethodPagination:
		return s.paginateURL(ctx, page, strategy, pageNum)
	case models.NavMethodScroll:
		return s.scrollOnce(ctx, page, strategy, scrolls)
	default:
		return false, nil
	}
}

// clickNext clicks the planned next control, or resolves a next link
// by its text when the strategy has no selector. A timed-out click is
// retried once with a doubled settle wait before giving up.
func (s *Service) clickNext(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy) (bool, error) {
	selector := strategy.Navigation.Selector
	if selector == "" {
		return s.followNextByText(ctx, page)
	}

	el, err := page.Query(ctx, selector)
	if err != nil {
		return false, err
	}
	if el == nil || isDisabled(el) {
		return false, nil
	}

	before := page.URL()
	beforeMark := firstItemMark(ctx, page, strategy)

	if err := page.Click(ctx, selector); err != nil {
		if !isTimeout(err) {
			return false, fmt.Errorf("click next failed: %w", err)
		}
		s.logger.Warn().Str("selector", selector).Msg("Next click timed out, retrying once")
		if err := s.settle(ctx, strategy.Navigation.WaitAfterClick*2); err != nil {
			return false, err
		}
		if err := page.Click(ctx, selector); err != nil {
			return false, fmt.Errorf("click next failed after retry: %w", err)
		}
	}

	if err := s.settle(ctx, strategy.Navigation.WaitAfterClick); err != nil {
		return false, err
	}

	// Same URL and same leading item means the control was decorative.
	if page.URL() == before && firstItemMark(ctx, page, strategy) == beforeMark {
		return false, nil
	}
	return true, nil
}

// followNextByText finds an anchor by next-page phrasing and navigates
// to its href.
func (s *Service) followNextByText(ctx context.Context, page interfaces.Page) (bool, error) {
	anchors, err := page.QueryAll(ctx, "a")
	if err != nil {
		return false, err
	}

	for _, a := range anchors {
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		for _, want := range nextLinkTexts {
			if text != want {
				continue
			}
			href, ok := a.Attr("href")
			if !ok || href == "" || strings.HasPrefix(href, "#") {
				continue
			}
			target, err := resolveURL(page.URL(), href)
			if err != nil {
				return false, err
			}
			if target == page.URL() {
				return false, nil
			}
			if err := page.Navigate(ctx, target); err != nil {
				return false, fmt.Errorf("next link navigation failed: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

// paginateURL rewrites the page query parameter and navigates. The
// parameter is derived from the current URL when present, so sites
// that start counting at 0 keep their own numbering.
func (s *Service) paginateURL(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy, pageNum int) (bool, error) {
	param := strategy.Navigation.URLParameter
	if param == "" {
		param = "page"
	}

	u, err := url.Parse(page.URL())
	if err != nil {
		return false, fmt.Errorf("invalid page url %q: %w", page.URL(), err)
	}

	q := u.Query()
	next := pageNum + 1
	if current, err := strconv.Atoi(q.Get(param)); err == nil {
		next = current + 1
	}
	q.Set(param, strconv.Itoa(next))
	u.RawQuery = q.Encode()

	if err := page.Navigate(ctx, u.String()); err != nil {
		if !isTimeout(err) {
			return false, fmt.Errorf("pagination navigation failed: %w", err)
		}
		s.logger.Warn().Str("url", u.String()).Msg("Pagination navigation timed out, retrying once")
		if err := page.Navigate(ctx, u.String()); err != nil {
			return false, fmt.Errorf("pagination navigation failed after retry: %w", err)
		}
	}
	return true, nil
}

// scrollOnce scrolls to the bottom and reports whether the page grew.
// A page whose height stops growing has no more content to load.
func (s *Service) scrollOnce(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy, scrolls *int) (bool, error) {
	if *scrolls >= strategy.Navigation.MaxScrolls {
		return false, nil
	}

	var before float64
	if err := page.Evaluate(ctx, "document.body.scrollHeight", &before); err != nil {
		return false, fmt.Errorf("scroll height read failed: %w", err)
	}

	if err := page.Evaluate(ctx, "window.scrollTo(0, document.body.scrollHeight)", nil); err != nil {
		return false, fmt.Errorf("scroll failed: %w", err)
	}
	if err := s.settle(ctx, strategy.Navigation.ScrollPause); err != nil {
		return false, err
	}
	if r, ok := page.(snapshotRefresher); ok {
		if err := r.RefreshSnapshot(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("Snapshot refresh after scroll failed")
		}
	}

	var after float64
	if err := page.Evaluate(ctx, "document.body.scrollHeight", &after); err != nil {
		return false, fmt.Errorf("scroll height read failed: %w", err)
	}

	*scrolls++
	return after > before, nil
}

// settle waits out the configured pause, honoring cancellation.
func (s *Service) settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// firstItemMark captures the text of the first item as a cheap page
// identity check around clicks.
func firstItemMark(ctx context.Context, page interfaces.Page, strategy *models.ScrapingStrategy) string {
	container, err := page.Query(ctx, strategy.ContainerSelector)
	if err != nil || container == nil {
		return ""
	}
	if item := container.Query(strategy.ItemSelector); item != nil {
		return item.Text()
	}
	return ""
}

func isDisabled(el interfaces.Element) bool {
	if _, ok := el.Attr("disabled"); ok {
		return true
	}
	if class, ok := el.Attr("class"); ok && strings.Contains(class, "disabled") {
		return true
	}
	if aria, ok := el.Attr("aria-disabled"); ok && aria == "true" {
		return true
	}
	return false
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "deadline exceeded") ||
		strings.Contains(err.Error(), "timeout")
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	r, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return b.ResolveReference(r).String(), nil
}
