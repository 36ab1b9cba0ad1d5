package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/model"
	"github.com/sells-group/insight-cli/internal/search"
)

// LinkedInChain runs one query through an ordered provider chain.
// search.Chain implements it.
type LinkedInChain interface {
	Run(ctx context.Context, query string, accept search.Accept) []model.SearchResult
}

// LinkedInResolver finds a company's LinkedIn page and, optionally, the
// people profiles surfaced by the same search.
type LinkedInResolver struct {
	chain LinkedInChain
}

// NewLinkedInResolver creates a LinkedInResolver over chain.
func NewLinkedInResolver(chain LinkedInChain) *LinkedInResolver {
	return &LinkedInResolver{chain: chain}
}

// LinkedInQuery is the search query issued for company.
func LinkedInQuery(company string) string {
	return "site:linkedin.com/in OR site:linkedin.com/company " + strings.TrimSpace(company)
}

// hasLinkedInHit stops the provider chain once any result points at LinkedIn.
func hasLinkedInHit(results []model.SearchResult) bool {
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.URL), "linkedin.com") {
			return true
		}
	}
	return false
}

// Resolve searches for company on LinkedIn. Provider failures count as
// empty results, so the only errors are a blank company and cancellation.
func (r *LinkedInResolver) Resolve(ctx context.Context, company string, wantContacts bool) (*model.LinkedInResult, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, eris.New("linkedin: company name is required")
	}
	start := time.Now()

	results := r.chain.Run(ctx, LinkedInQuery(company), hasLinkedInHit)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "linkedin: resolve")
	}

	out := &model.LinkedInResult{
		Contacts:         []model.Contact{},
		RawSearchResults: append([]model.SearchResult{}, results...),
	}

	for _, res := range results {
		if strings.Contains(strings.ToLower(res.URL), "linkedin.com/company/") {
			out.LinkedInURL = res.URL
			out.CompanySize, out.Industry, out.Location = parseCompanySnippet(res.Snippet)
			break
		}
	}

	if wantContacts {
		out.Contacts = parseContacts(results)
	}

	if out.LinkedInURL == "" && len(out.Contacts) == 0 {
		out.NoInformation = true
		out.Note = model.NoInformation
	}
	out.DurationMs = time.Since(start).Milliseconds()

	zap.L().Info("linkedin: resolved",
		zap.String("company", company),
		zap.String("linkedin_url", out.LinkedInURL),
		zap.Int("contacts", len(out.Contacts)),
		zap.Int("results", len(results)),
		zap.Int64("duration_ms", out.DurationMs),
	)
	return out, nil
}

var (
	sizeRe     = regexp.MustCompile(`(?i)(\d[\d,.]*\s*(?:-|–|to)\s*\d[\d,.]*\+?|\d[\d,.]*\+)\s*employees`)
	industryRe = regexp.MustCompile(`(?i)industry\s*[:·]\s*([^|·\n]+)`)
	locationRe = regexp.MustCompile(`(?i)(?:headquarters|location)\s*[:·]\s*([^|·\n]+)`)
)

// parseCompanySnippet pulls size, industry and location out of a LinkedIn
// company search snippet. Missing parts are returned empty.
func parseCompanySnippet(snippet string) (size, industry, location string) {
	if m := sizeRe.FindStringSubmatch(snippet); m != nil {
		size = strings.Join(strings.Fields(m[1]), "") + " employees"
		size = strings.ReplaceAll(size, "to", "-")
	}
	if m := industryRe.FindStringSubmatch(snippet); m != nil {
		industry = trimClause(m[1])
	}
	if m := locationRe.FindStringSubmatch(snippet); m != nil {
		location = trimClause(m[1])
	}
	return size, industry, location
}

func trimClause(s string) string {
	s = strings.TrimSpace(s)
	// Snippets run on into the next sentence.
	if idx := strings.Index(s, ". "); idx > 0 {
		s = s[:idx]
	}
	return strings.TrimRight(strings.TrimSpace(s), ".")
}

var titleDelimiters = []string{" - ", " – ", " | "}

// parseContacts turns linkedin.com/in/ results into contacts, dropping
// duplicate profiles.
func parseContacts(results []model.SearchResult) []model.Contact {
	contacts := []model.Contact{}
	seen := make(map[string]bool)
	for _, res := range results {
		if !strings.Contains(strings.ToLower(res.URL), "linkedin.com/in/") {
			continue
		}
		key := profileKey(res.URL)
		if seen[key] {
			continue
		}
		seen[key] = true

		name, title := splitProfileTitle(res.Title)
		contacts = append(contacts, model.Contact{
			FullName:  name,
			Title:     title,
			Summary:   strings.TrimSpace(res.Snippet),
			SourceURL: res.URL,
		})
	}
	return contacts
}

// splitProfileTitle splits "Jane Doe - CEO - Acme | LinkedIn" into the
// name and the title.
func splitProfileTitle(title string) (name, role string) {
	title = strings.TrimSpace(title)
	for _, suffix := range []string{"| LinkedIn", "- LinkedIn"} {
		if strings.HasSuffix(title, suffix) {
			title = strings.TrimSpace(strings.TrimSuffix(title, suffix))
			break
		}
	}

	parts := []string{title}
	for {
		last := parts[len(parts)-1]
		idx, width := firstDelimiter(last)
		if idx < 0 {
			break
		}
		parts[len(parts)-1] = last[:idx]
		parts = append(parts, last[idx+width:])
	}

	name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		role = strings.TrimSpace(parts[1])
	}
	return name, role
}

func firstDelimiter(s string) (int, int) {
	best, width := -1, 0
	for _, d := range titleDelimiters {
		if idx := strings.Index(s, d); idx >= 0 && (best < 0 || idx < best) {
			best, width = idx, len(d)
		}
	}
	return best, width
}

// profileKey normalizes a profile URL for deduplication.
func profileKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	// Country subdomains (tr.linkedin.com) point at the same profile.
	if i := strings.Index(host, "linkedin.com"); i > 0 {
		host = host[i:]
	}
	return host + strings.TrimRight(strings.ToLower(u.Path), "/")
}
