// Package parser turns free-text part application strings like
// "2005-2010 Ford F-150 Left or Right Front Upper" into structured
// PartApplications and expands them into concrete year/vehicle/position
// fitments.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fitmentiq/fitment-engine/engine/domain"
	"github.com/fitmentiq/fitment-engine/engine/mapping"
)

// Year token shapes, tried in order: an explicit range, an open-ended
// "YYYY+" range, then a bare year.
var (
	yearRangeRe = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s*(?:-|–|—|to)\s*((?:19|20)\d{2}|present|current)\b`)
	yearPlusRe  = regexp.MustCompile(`\b((?:19|20)\d{2})\s*\+`)
	yearBareRe  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

	// naRe protects "N/A" from the "/" conjunction split.
	naRe   = regexp.MustCompile(`(?i)\bn/a\b`)
	conjRe = regexp.MustCompile(`(?i)\s*(?:\bor\b|\band\b|,|/)\s*`)
)

// Parser extracts year ranges, vehicle candidates, and position groups from
// raw application text. Vehicle resolution is delegated to the mapping
// resolver. A Parser is stateless apart from its configuration and safe for
// concurrent use.
type Parser struct {
	resolver    *mapping.Resolver
	presentYear int
	maxFitments int
}

// Option configures a Parser.
type Option func(*Parser)

// WithPresentYear pins the year that open-ended ranges ("2018-present",
// "2018+") resolve to. Defaults to the current calendar year.
func WithPresentYear(year int) Option {
	return func(p *Parser) { p.presentYear = year }
}

// WithMaxFitments caps the expansion size. Zero means unbounded, which is
// the default: a compound position phrase over a wide year range can
// legitimately produce a large result set.
func WithMaxFitments(n int) Option {
	return func(p *Parser) { p.maxFitments = n }
}

// New creates a Parser backed by the given resolver.
func New(resolver *mapping.Resolver, opts ...Option) *Parser {
	p := &Parser{
		resolver:    resolver,
		presentYear: time.Now().Year(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ExtractYearRange finds the first year token in text and returns the
// inclusive [start, end] range it denotes. A bare "YYYY" is the one-year
// range [YYYY, YYYY]. Fails when no token is found or the range is inverted.
func (p *Parser) ExtractYearRange(text string) (int, int, error) {
	start, end, _, err := p.yearRange(text)
	return start, end, err
}

// yearRange also reports the byte offset just past the matched token so
// ParseApplication can carve the position phrase off the tail.
func (p *Parser) yearRange(text string) (int, int, int, error) {
	if m := yearRangeRe.FindStringSubmatchIndex(text); m != nil {
		start, _ := strconv.Atoi(text[m[2]:m[3]])
		rawEnd := strings.ToLower(text[m[4]:m[5]])
		end := p.presentYear
		if rawEnd != "present" && rawEnd != "current" {
			end, _ = strconv.Atoi(rawEnd)
		}
		if end < start {
			return 0, 0, 0, domain.NewParseError(text, domain.ErrYearRangeOrder)
		}
		return start, end, m[1], nil
	}
	if m := yearPlusRe.FindStringSubmatchIndex(text); m != nil {
		start, _ := strconv.Atoi(text[m[2]:m[3]])
		end := p.presentYear
		if end < start {
			end = start
		}
		return start, end, m[1], nil
	}
	if m := yearBareRe.FindStringSubmatchIndex(text); m != nil {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		return year, year, m[1], nil
	}
	return 0, 0, 0, domain.NewParseError(text, domain.ErrNoYearRange)
}

// ExtractPositions parses a position phrase into one group per alternative.
// Splitting happens on the conjunctions "or", "and", ",", and "/". A shorter
// leading alternative inherits the trailing tokens of the final one, so
// "Left or Right Front Upper" yields [left front upper] and
// [right front upper]. Unrecognised tokens become varies; empty input yields
// the single group [varies]. This function is total and never fails.
func (p *Parser) ExtractPositions(text string) []domain.PositionGroup {
	normalized := naRe.ReplaceAllString(text, "na")

	var clauses []domain.PositionGroup
	for _, clause := range conjRe.Split(normalized, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		var group domain.PositionGroup
		for _, token := range strings.Fields(clause) {
			pos, ok := domain.ParsePosition(token)
			if !ok {
				pos = domain.PositionVaries
			}
			group = append(group, pos)
		}
		clauses = append(clauses, group)
	}
	if len(clauses) == 0 {
		return []domain.PositionGroup{{domain.PositionVaries}}
	}

	// Distribute the shared tail of the last alternative across shorter
	// leading ones: "Left or Right Front Upper" reads as two full phrases.
	last := clauses[len(clauses)-1]
	groups := make([]domain.PositionGroup, len(clauses))
	for i, clause := range clauses {
		group := append(domain.PositionGroup(nil), clause...)
		if i < len(clauses)-1 && len(clause) < len(last) {
			group = append(group, last[len(clause):]...)
		}
		groups[i] = group
	}
	return groups
}

// ParseApplication parses one raw application string. It fails with a
// ParseError when no year range is found, the range is inverted, or the
// vehicle phrase resolves to no mapping. Position parsing never fails.
func (p *Parser) ParseApplication(raw string) (domain.PartApplication, error) {
	yearStart, yearEnd, yearStop, err := p.yearRange(raw)
	if err != nil {
		return domain.PartApplication{}, err
	}

	vehicles, err := p.resolver.Resolve(raw)
	if err != nil {
		return domain.PartApplication{}, err
	}

	// The position phrase is whatever trails both the year token and the
	// rightmost matched vehicle pattern.
	posStart := yearStop
	if patternStop := p.resolver.Match(raw); patternStop > posStart {
		posStart = patternStop
	}
	positionText := strings.TrimSpace(raw[posStart:])

	return domain.PartApplication{
		RawText:      raw,
		YearStart:    yearStart,
		YearEnd:      yearEnd,
		Vehicles:     vehicles,
		PositionText: positionText,
		Positions:    p.ExtractPositions(positionText),
	}, nil
}

// Expand cartesian-expands an application into one PartFitment per
// (year, vehicle, position group) combination. The output count is exactly
// the product of the three factor cardinalities, ordered years ascending,
// vehicles in resolver rank order, groups in extraction order.
func (p *Parser) Expand(app domain.PartApplication) ([]domain.PartFitment, error) {
	years := app.YearEnd - app.YearStart + 1
	if years < 0 {
		years = 0
	}
	total := years * len(app.Vehicles) * len(app.Positions)
	if p.maxFitments > 0 && total > p.maxFitments {
		return nil, domain.NewParseError(app.RawText, domain.ErrExpansionTooBig)
	}

	fitments := make([]domain.PartFitment, 0, total)
	for year := app.YearStart; year <= app.YearEnd; year++ {
		for _, v := range app.Vehicles {
			for _, g := range app.Positions {
				fitments = append(fitments, domain.PartFitment{
					Year:      year,
					Make:      v.Make,
					Code:      v.Code,
					Model:     v.Model,
					Positions: g,
					RawText:   app.RawText,
				})
			}
		}
	}
	return fitments, nil
}
