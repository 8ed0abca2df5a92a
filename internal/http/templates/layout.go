package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const layoutStyles = `body{max-width:46rem;margin:2rem auto;padding:0 1rem;font-family:Georgia,serif;color:#222;line-height:1.6}
nav{display:flex;gap:1rem;border-bottom:1px solid #ddd;padding-bottom:.75rem;margin-bottom:1.5rem}
nav a{color:#444;text-decoration:none}
h1,h2{font-weight:normal}
form p{margin:.75rem 0}
label{display:block;font-size:.9rem;color:#555}
input[type=text],input[type=email],input[type=url],input[type=password],textarea{width:100%;padding:.4rem;border:1px solid #bbb;font:inherit}
textarea{min-height:8rem}
button{padding:.4rem 1.2rem;font:inherit;cursor:pointer}
.error{color:#a00;font-size:.9rem}
.comment{border-top:1px solid #eee;padding:.75rem 0}
.meta{color:#777;font-size:.85rem}
footer{margin-top:3rem;border-top:1px solid #ddd;padding-top:.75rem;color:#888;font-size:.85rem}`

// Layout wraps page content with the shared chrome: head, nav, and footer.
func Layout(title string, loggedIn bool, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := write(w,
			"<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">",
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">",
			"<title>", esc(title), "</title>",
			"<style>", layoutStyles, "</style>",
			"</head><body><nav>",
			"<a href=\"/\">Marginalia</a>",
		)
		if err != nil {
			return err
		}

		if loggedIn {
			err = write(w,
				"<a href=\"/blog/add/post\">Write</a>",
				"<a href=\"/accounts/logout/\">Log out</a>",
			)
		} else {
			err = write(w, "<a href=\"/accounts/login/\">Log in</a>")
		}
		if err != nil {
			return err
		}

		if err := write(w, "</nav><main>"); err != nil {
			return err
		}

		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}

		return write(w, "</main><footer>", esc(DefaultFooterNote), "</footer></body></html>")
	})
}
