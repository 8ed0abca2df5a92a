package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HomePage renders the landing page with the most recent posts.
func HomePage(data HomePageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, "<h1>Marginalia</h1>"); err != nil {
			return err
		}

		if len(data.Posts) == 0 {
			return write(w, "<p>Nothing published yet.</p>")
		}

		if err := write(w, "<ul class=\"post-list\">"); err != nil {
			return err
		}
		for _, post := range data.Posts {
			err := write(w,
				"<li><a href=\"", esc(post.URL), "\">", esc(post.Title), "</a>",
				" <span class=\"meta\">", esc(post.Published), "</span></li>",
			)
			if err != nil {
				return err
			}
		}
		return write(w, "</ul>")
	})

	return Layout("Marginalia", data.LoggedIn, content)
}

// LoginPage renders the login form, optionally with a failure message.
func LoginPage(data LoginPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, "<h1>Log in</h1>"); err != nil {
			return err
		}

		if data.ErrorMessage != "" {
			if err := write(w, "<p class=\"error\">", esc(data.ErrorMessage), "</p>"); err != nil {
				return err
			}
		}

		return write(w,
			"<form method=\"post\" action=\"/accounts/login/\">",
			"<input type=\"hidden\" name=\"next\" value=\"", esc(data.Next), "\">",
			"<p><label for=\"username\">Username</label>",
			"<input type=\"text\" id=\"username\" name=\"username\" value=\"", esc(data.Username), "\" required></p>",
			"<p><label for=\"password\">Password</label>",
			"<input type=\"password\" id=\"password\" name=\"password\" required></p>",
			"<p><button type=\"submit\">Log in</button></p>",
			"</form>",
		)
	})

	return Layout("Log in • Marginalia", false, content)
}

// PostFormPage renders the admin-only form for writing a new post.
func PostFormPage(data PostFormData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, "<h1>Write a post</h1>",
			"<form method=\"post\" action=\"/blog/add/post\">"); err != nil {
			return err
		}

		if err := formField(w, "Title", "title", "text", data.Title, true, data.FieldErrors); err != nil {
			return err
		}
		if err := formField(w, "Slug (optional)", "slug", "text", data.Slug, false, data.FieldErrors); err != nil {
			return err
		}
		if err := textareaField(w, "Body", "body", data.Body, data.FieldErrors); err != nil {
			return err
		}

		return write(w, "<p><button type=\"submit\">Publish</button></p></form>")
	})

	return Layout("Write a post • Marginalia", true, content)
}

// PostPage renders a post, its comments, and the comment form.
func PostPage(data PostPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		err := write(w,
			"<article><h1>", esc(data.Title), "</h1>",
			"<p class=\"meta\">", esc(data.Published), "</p>",
		)
		if err != nil {
			return err
		}

		for _, paragraph := range data.Paragraphs {
			if err := write(w, "<p>", esc(paragraph), "</p>"); err != nil {
				return err
			}
		}

		if err := write(w, "</article><section id=\"comments\"><h2>Comments</h2>"); err != nil {
			return err
		}

		if len(data.Comments) == 0 {
			if err := write(w, "<p>No comments yet.</p>"); err != nil {
				return err
			}
		}

		for _, comment := range data.Comments {
			if err := write(w, "<div class=\"comment\"><p class=\"meta\">"); err != nil {
				return err
			}
			if comment.Website != "" {
				err = write(w, "<a href=\"", esc(comment.Website), "\" rel=\"nofollow\">", esc(comment.Name), "</a>")
			} else {
				err = write(w, esc(comment.Name))
			}
			if err != nil {
				return err
			}
			if err := write(w, " • ", esc(comment.Published), "</p><p>", esc(comment.Body), "</p></div>"); err != nil {
				return err
			}
		}

		if err := write(w, "<h2>Leave a comment</h2>",
			"<form method=\"post\" action=\"/blog/post/", esc(data.Slug), "\">"); err != nil {
			return err
		}

		form := data.Form
		if err := formField(w, "Name", "name", "text", form.Name, true, form.FieldErrors); err != nil {
			return err
		}
		if err := formField(w, "Email (not published)", "email", "email", form.Email, true, form.FieldErrors); err != nil {
			return err
		}
		if err := formField(w, "Website (optional)", "website", "url", form.Website, false, form.FieldErrors); err != nil {
			return err
		}
		if err := textareaField(w, "Comment", "body", form.Body, form.FieldErrors); err != nil {
			return err
		}

		return write(w, "<p><button type=\"submit\">Post comment</button></p></form></section>")
	})

	return Layout(data.Title+" • Marginalia", data.LoggedIn, content)
}

// ArchivePage renders a month or week archive listing.
func ArchivePage(data ArchivePageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, "<h1>", esc(data.Heading), "</h1>"); err != nil {
			return err
		}

		if len(data.Posts) == 0 {
			return write(w, "<p>No posts in this period.</p>")
		}

		if err := write(w, "<ul class=\"post-list\">"); err != nil {
			return err
		}
		for _, post := range data.Posts {
			err := write(w,
				"<li><a href=\"", esc(post.URL), "\">", esc(post.Title), "</a>",
				" <span class=\"meta\">", esc(post.Published), "</span></li>",
			)
			if err != nil {
				return err
			}
		}
		return write(w, "</ul>")
	})

	return Layout(data.Heading+" • Marginalia", data.LoggedIn, content)
}

// ErrorPage renders the shared error view.
func ErrorPage(data ErrorPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w,
			"<h1>", esc(data.StatusLabel), "</h1>",
			"<p>", esc(data.Message), "</p>",
			"<p><a href=\"/\">Back to the front page</a></p>",
		)
	})

	return Layout(data.Title, false, content)
}

func formField(w io.Writer, label, name, inputType, value string, required bool, fieldErrors map[string]string) error {
	requiredAttr := ""
	if required {
		requiredAttr = " required"
	}

	err := write(w,
		"<p><label for=\"", name, "\">", esc(label), "</label>",
		"<input type=\"", inputType, "\" id=\"", name, "\" name=\"", name, "\" value=\"", esc(value), "\"", requiredAttr, ">",
	)
	if err != nil {
		return err
	}

	if message, ok := fieldErrors[name]; ok {
		if err := write(w, "<span class=\"error\">", esc(message), "</span>"); err != nil {
			return err
		}
	}

	return write(w, "</p>")
}

func textareaField(w io.Writer, label, name, value string, fieldErrors map[string]string) error {
	err := write(w,
		"<p><label for=\"", name, "\">", esc(label), "</label>",
		"<textarea id=\"", name, "\" name=\"", name, "\">", esc(value), "</textarea>",
	)
	if err != nil {
		return err
	}

	if message, ok := fieldErrors[name]; ok {
		if err := write(w, "<span class=\"error\">", esc(message), "</span>"); err != nil {
			return err
		}
	}

	return write(w, "</p>")
}
