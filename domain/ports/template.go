package ports

// TemplateEngine renders text templates.
type TemplateEngine interface {
	// Render executes raw as a template named name against data.
	Render(name string, raw []byte, data any) ([]byte, error)
}
