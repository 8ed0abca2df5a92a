package http

import (
	"net/mail"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

type loginForm struct {
	Username string
	Password string
	Next     string
}

type postForm struct {
	Title string
	Slug  string
	Body  string
}

type commentForm struct {
	Name    string
	Email   string
	Website string
	Body    string
}

func parseFormValues(raw []byte) (url.Values, error) {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, eris.Wrap(err, "parsing form body")
	}
	return values, nil
}

func parseLoginForm(raw []byte) (loginForm, error) {
	values, err := parseFormValues(raw)
	if err != nil {
		return loginForm{}, err
	}

	return loginForm{
		Username: strings.TrimSpace(values.Get("username")),
		Password: values.Get("password"),
		Next:     values.Get("next"),
	}, nil
}

func parsePostForm(raw []byte) (postForm, error) {
	values, err := parseFormValues(raw)
	if err != nil {
		return postForm{}, err
	}

	return postForm{
		Title: strings.TrimSpace(values.Get("title")),
		Slug:  strings.TrimSpace(values.Get("slug")),
		Body:  strings.TrimSpace(values.Get("body")),
	}, nil
}

func (f postForm) validate() map[string]string {
	fieldErrors := map[string]string{}

	if f.Title == "" {
		fieldErrors["title"] = "This field is required."
	}
	if f.Body == "" {
		fieldErrors["body"] = "This field is required."
	}

	return fieldErrors
}

func parseCommentForm(raw []byte) (commentForm, error) {
	values, err := parseFormValues(raw)
	if err != nil {
		return commentForm{}, err
	}

	return commentForm{
		Name:    strings.TrimSpace(values.Get("name")),
		Email:   strings.TrimSpace(values.Get("email")),
		Website: strings.TrimSpace(values.Get("website")),
		Body:    strings.TrimSpace(values.Get("body")),
	}, nil
}

func (f commentForm) validate() map[string]string {
	fieldErrors := map[string]string{}

	if f.Name == "" {
		fieldErrors["name"] = "This field is required."
	}

	if f.Email == "" {
		fieldErrors["email"] = "This field is required."
	} else if _, err := mail.ParseAddress(f.Email); err != nil {
		fieldErrors["email"] = "Enter a valid email address."
	}

	if f.Website != "" {
		parsed, err := url.Parse(f.Website)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			fieldErrors["website"] = "Enter a valid URL starting with http:// or https://."
		}
	}

	if f.Body == "" {
		fieldErrors["body"] = "This field is required."
	}

	return fieldErrors
}

// safeNext keeps post-login redirects on this site. Anything that is not a
// local absolute path falls back to the front page.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
