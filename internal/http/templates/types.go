package templates

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Marginalia is a small blog. Comments welcome."

// PostSummaryView represents a post row in a listing.
type PostSummaryView struct {
	Title     string
	URL       string
	Published string
}

// HomePageData contains dynamic values rendered on the landing page.
type HomePageData struct {
	Posts    []PostSummaryView
	LoggedIn bool
}

// LoginPageData bundles template data for the login form.
type LoginPageData struct {
	Username     string
	Next         string
	ErrorMessage string
}

// PostFormData bundles template data for the add-post form.
type PostFormData struct {
	Title       string
	Slug        string
	Body        string
	FieldErrors map[string]string
}

// CommentFormData carries the comment form values, either prefilled from the
// session or re-rendered after a failed submission.
type CommentFormData struct {
	Name        string
	Email       string
	Website     string
	Body        string
	FieldErrors map[string]string
}

// CommentView represents a single rendered comment.
type CommentView struct {
	Name      string
	Website   string
	Body      string
	Published string
}

// PostPageData contains the dynamic values for a post detail page.
type PostPageData struct {
	Title      string
	Slug       string
	Published  string
	Paragraphs []string
	Comments   []CommentView
	Form       CommentFormData
	LoggedIn   bool
}

// ArchivePageData bundles template data for a month or week archive listing.
type ArchivePageData struct {
	Heading  string
	Posts    []PostSummaryView
	LoggedIn bool
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
