package ports

// TemplateEngine expands placeholders in a manifest before it is parsed.
type TemplateEngine interface {
	// Render returns raw with every placeholder resolved from vars.
	Render(raw []byte, vars map[string]string) ([]byte, error)
}
