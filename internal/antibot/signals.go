package antibot

import (
	"net/http"
	"strings"

	"github.com/FranksOps/serpent/internal/browser"
)

// Signal classifies what a detector saw on a fetched page.
type Signal int

const (
	// SignalNone means the page shows no anomaly.
	SignalNone Signal = iota
	// SignalSuspected is a single weak indicator, e.g. a CAPTCHA widget
	// present on an otherwise rendered page.
	SignalSuspected
	// SignalThrottled is a confirmed rate-limit page ("unusual traffic").
	SignalThrottled
	// SignalBlocked means a CAPTCHA interstitial fully replaces content.
	SignalBlocked
)

func (s Signal) String() string {
	switch s {
	case SignalSuspected:
		return "suspected"
	case SignalThrottled:
		return "throttled"
	case SignalBlocked:
		return "blocked"
	default:
		return "none"
	}
}

// Detector examines a fetched page for one anti-bot countermeasure.
// Detectors return the strongest signal they can justify.
type Detector func(page *browser.Page) (Signal, string)

// DefaultDetectors returns the standard detector list, ordered so the
// strongest signals win.
func DefaultDetectors() []Detector {
	return []Detector{
		detectSorryInterstitial,
		detectUnusualTraffic,
		detectCaptchaWall,
		detectCaptchaWidget,
	}
}

// Classify runs the page through all detectors and returns the strongest
// signal observed with the name of the detector that produced it.
func Classify(page *browser.Page, detectors []Detector) (Signal, string) {
	if page == nil {
		return SignalNone, ""
	}
	strongest := SignalNone
	source := ""
	for _, d := range detectors {
		if sig, src := d(page); sig > strongest {
			strongest = sig
			source = src
		}
	}
	return strongest, source
}

// detectSorryInterstitial catches Google's /sorry/ redirect, which always
// means the request was flagged.
func detectSorryInterstitial(page *browser.Page) (Signal, string) {
	if strings.Contains(page.URL, "/sorry/") || strings.Contains(page.URL, "ipv4.google.com/sorry") {
		return SignalBlocked, "sorry_interstitial"
	}
	return SignalNone, ""
}

// detectUnusualTraffic catches the rate-limit banner shown before a hard
// block kicks in.
func detectUnusualTraffic(page *browser.Page) (Signal, string) {
	lower := strings.ToLower(page.HTML)
	if strings.Contains(lower, "unusual traffic from your computer network") ||
		strings.Contains(lower, "our systems have detected unusual traffic") {
		return SignalThrottled, "unusual_traffic"
	}
	if page.StatusCode == http.StatusTooManyRequests {
		return SignalThrottled, "http_429"
	}
	return SignalNone, ""
}

// detectCaptchaWall distinguishes a CAPTCHA that replaces the whole page
// from a widget sitting beside real content: a wall has the challenge
// markup but no recognizable results markup.
func detectCaptchaWall(page *browser.Page) (Signal, string) {
	lower := strings.ToLower(page.HTML)
	if !containsCaptchaMarkup(lower) {
		return SignalNone, ""
	}
	if strings.Contains(lower, "id=\"search\"") ||
		strings.Contains(lower, "id=\"b_results\"") ||
		strings.Contains(lower, "class=\"b_algo\"") {
		return SignalNone, ""
	}
	return SignalBlocked, "captcha_wall"
}

// detectCaptchaWidget reports a CAPTCHA widget present alongside content.
func detectCaptchaWidget(page *browser.Page) (Signal, string) {
	lower := strings.ToLower(page.HTML)
	if containsCaptchaMarkup(lower) {
		return SignalSuspected, "captcha_widget"
	}
	if page.StatusCode == http.StatusForbidden {
		return SignalSuspected, "http_403"
	}
	return SignalNone, ""
}

func containsCaptchaMarkup(lowerHTML string) bool {
	return strings.Contains(lowerHTML, "g-recaptcha") ||
		strings.Contains(lowerHTML, "recaptcha/api.js") ||
		strings.Contains(lowerHTML, "cf-turnstile") ||
		strings.Contains(lowerHTML, "captcha-form") ||
		strings.Contains(lowerHTML, "id=\"captcha\"")
}
