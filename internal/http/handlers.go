package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"marginalia/app/internal/blog"
	"marginalia/app/internal/db"
	"marginalia/app/internal/http/templates"
	"marginalia/app/internal/session"
	"marginalia/app/internal/user"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	homePostLimit        = 10
	publishedDateLayout  = "January 2, 2006"
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	SetCookie   string `header:"Set-Cookie"`
	Body        []byte
}

type loginPageInput struct {
	Next string `query:"next"`
}

type formInput struct {
	RawBody []byte
}

type postPageInput struct {
	Slug string `path:"slug"`
}

type commentInput struct {
	Slug    string `path:"slug"`
	RawBody []byte
}

type archiveMonthInput struct {
	Year  int `path:"year"`
	Month int `path:"month"`
}

type archiveWeekInput struct {
	Year int `path:"year"`
	Week int `path:"week"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Marginalia home", stdhttp.StatusInternalServerError))
}

func (s *Server) registerLoginRoutes() {
	huma.Get(s.api, "/accounts/login/", s.loginFormHandler, htmlOperation("Login form"))
	huma.Post(s.api, "/accounts/login/", s.loginSubmitHandler, htmlOperation(
		"Submit login form",
		stdhttp.StatusFound,
		stdhttp.StatusBadRequest,
	))
}

func (s *Server) registerLogoutRoute() {
	huma.Get(s.api, "/accounts/logout/", s.logoutHandler, htmlOperation("Log out", stdhttp.StatusFound))
}

func (s *Server) registerAddPostRoutes() {
	huma.Get(s.api, "/blog/add/post", s.addPostFormHandler, htmlOperation(
		"Add post form",
		stdhttp.StatusFound,
	))
	huma.Post(s.api, "/blog/add/post", s.addPostSubmitHandler, htmlOperation(
		"Submit a new post",
		stdhttp.StatusFound,
		stdhttp.StatusUnprocessableEntity,
	))
}

func (s *Server) registerPostRoutes() {
	huma.Get(s.api, "/blog/post/{slug}", s.postDetailHandler, htmlOperation(
		"View a post",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/blog/post/{slug}", s.addCommentHandler, htmlOperation(
		"Submit a comment",
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
		stdhttp.StatusUnprocessableEntity,
	))
}

func (s *Server) registerArchiveRoutes() {
	huma.Get(s.api, "/blog/archive/{year}/month/{month}", s.archiveMonthHandler, htmlOperation(
		"Posts for a calendar month",
		stdhttp.StatusNotFound,
	))
	huma.Get(s.api, "/blog/archive/{year}/week/{week}", s.archiveWeekHandler, htmlOperation(
		"Posts for an ISO week",
		stdhttp.StatusNotFound,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	posts, err := s.blog.RecentPosts(ctx, homePostLimit)
	if err != nil {
		s.recordError(ctx, err, "listing recent posts", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.HomePageData{
		Posts:    postSummaries(posts),
		LoggedIn: UserFromContext(ctx) != nil,
	}

	body, err := renderComponent(ctx, templates.HomePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering home page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) loginFormHandler(ctx context.Context, input *loginPageInput) (*htmlResponse, error) {
	data := templates.LoginPageData{Next: safeNext(input.Next)}

	body, err := renderComponent(ctx, templates.LoginPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering login form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) loginSubmitHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	form, err := parseLoginForm(input.RawBody)
	if err != nil {
		s.recordError(ctx, err, "parsing login form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "The submitted form could not be read.")
	}

	account, err := s.users.Authenticate(ctx, form.Username, form.Password)
	if err != nil {
		if eris.Is(err, user.ErrInvalidCredentials) {
			data := templates.LoginPageData{
				Username:     form.Username,
				Next:         safeNext(form.Next),
				ErrorMessage: "Your username and password didn't match. Please try again.",
			}
			body, renderErr := renderComponent(ctx, templates.LoginPage(data))
			if renderErr != nil {
				s.recordError(ctx, renderErr, "rendering login failure", nil)
				return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
			}
			return newHTMLResponse(stdhttp.StatusOK, body), nil
		}

		s.recordError(ctx, err, "authenticating user", logrus.Fields{"username": form.Username})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	sess, cookie, err := s.ensureSession(ctx)
	if err != nil {
		s.recordError(ctx, err, "creating session for login", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	if err := s.sessions.BindUser(ctx, sess, account.ID); err != nil {
		s.recordError(ctx, err, "binding session to user", logrus.Fields{"username": form.Username})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = safeNext(form.Next)
	response.SetCookie = cookie
	return response, nil
}

func (s *Server) logoutHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if sess := SessionFromContext(ctx); sess != nil && sess.UserID != nil {
		if err := s.sessions.UnbindUser(ctx, sess); err != nil {
			s.recordError(ctx, err, "unbinding session on logout", nil)
		}
	}

	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = "/"
	return response, nil
}

func (s *Server) addPostFormHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if redirect := s.requireAdmin(ctx, "/blog/add/post"); redirect != nil {
		return redirect, nil
	}

	body, err := renderComponent(ctx, templates.PostFormPage(templates.PostFormData{}))
	if err != nil {
		s.recordError(ctx, err, "rendering post form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) addPostSubmitHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	if redirect := s.requireAdmin(ctx, "/blog/add/post"); redirect != nil {
		return redirect, nil
	}

	form, err := parsePostForm(input.RawBody)
	if err != nil {
		s.recordError(ctx, err, "parsing post form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "The submitted form could not be read.")
	}

	if fieldErrors := form.validate(); len(fieldErrors) > 0 {
		data := templates.PostFormData{
			Title:       form.Title,
			Slug:        form.Slug,
			Body:        form.Body,
			FieldErrors: fieldErrors,
		}
		body, renderErr := renderComponent(ctx, templates.PostFormPage(data))
		if renderErr != nil {
			s.recordError(ctx, renderErr, "rendering post form errors", nil)
			return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
		}
		return newHTMLResponse(stdhttp.StatusUnprocessableEntity, body), nil
	}

	account := UserFromContext(ctx)
	post, err := s.blog.CreatePost(ctx, blog.PostInput{
		Title:    form.Title,
		Slug:     form.Slug,
		Body:     form.Body,
		AuthorID: account.ID,
	})
	if err != nil {
		s.recordError(ctx, err, "creating post", logrus.Fields{"title": form.Title})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = "/blog/post/" + url.PathEscape(post.Slug)
	return response, nil
}

func (s *Server) postDetailHandler(ctx context.Context, input *postPageInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)

	post, comments, err := s.blog.PostWithComments(ctx, slug)
	if err != nil {
		status, message := classifyError(err)
		if status >= 500 {
			s.recordError(ctx, err, "loading post", logrus.Fields{"slug": slug})
		}
		return s.renderErrorResponse(ctx, status, message)
	}

	data := s.postPageData(ctx, post, comments, nil, nil)

	body, err := renderComponent(ctx, templates.PostPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering post page", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) addCommentHandler(ctx context.Context, input *commentInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)

	form, err := parseCommentForm(input.RawBody)
	if err != nil {
		s.recordError(ctx, err, "parsing comment form", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "The submitted form could not be read.")
	}

	if fieldErrors := form.validate(); len(fieldErrors) > 0 {
		post, comments, loadErr := s.blog.PostWithComments(ctx, slug)
		if loadErr != nil {
			status, message := classifyError(loadErr)
			return s.renderErrorResponse(ctx, status, message)
		}

		data := s.postPageData(ctx, post, comments, &form, fieldErrors)
		body, renderErr := renderComponent(ctx, templates.PostPage(data))
		if renderErr != nil {
			s.recordError(ctx, renderErr, "rendering comment errors", logrus.Fields{"slug": slug})
			return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
		}
		return newHTMLResponse(stdhttp.StatusUnprocessableEntity, body), nil
	}

	if _, err := s.blog.AddComment(ctx, slug, blog.CommentInput{
		Name:    form.Name,
		Email:   form.Email,
		Website: form.Website,
		Body:    form.Body,
	}); err != nil {
		status, message := classifyError(err)
		if status >= 500 {
			s.recordError(ctx, err, "adding comment", logrus.Fields{"slug": slug})
		}
		return s.renderErrorResponse(ctx, status, message)
	}

	sess, cookie, err := s.ensureSession(ctx)
	if err != nil {
		s.recordError(ctx, err, "creating session for commenter", logrus.Fields{"slug": slug})
	} else if err := s.sessions.SetCommenter(ctx, sess, form.Name, form.Email, form.Website); err != nil {
		s.recordError(ctx, err, "remembering commenter identity", logrus.Fields{"slug": slug})
	}

	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = "/blog/post/" + url.PathEscape(slug) + "#comments"
	response.SetCookie = cookie
	return response, nil
}

func (s *Server) archiveMonthHandler(ctx context.Context, input *archiveMonthInput) (*htmlResponse, error) {
	posts, err := s.blog.ArchiveMonth(ctx, input.Year, input.Month)
	if err != nil {
		status, message := classifyError(err)
		if status >= 500 {
			s.recordError(ctx, err, "loading month archive", logrus.Fields{"year": input.Year, "month": input.Month})
		}
		return s.renderErrorResponse(ctx, status, message)
	}

	data := templates.ArchivePageData{
		Heading:  fmt.Sprintf("%s %d", time.Month(input.Month).String(), input.Year),
		Posts:    postSummaries(posts),
		LoggedIn: UserFromContext(ctx) != nil,
	}

	body, err := renderComponent(ctx, templates.ArchivePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering month archive", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) archiveWeekHandler(ctx context.Context, input *archiveWeekInput) (*htmlResponse, error) {
	posts, err := s.blog.ArchiveWeek(ctx, input.Year, input.Week)
	if err != nil {
		status, message := classifyError(err)
		if status >= 500 {
			s.recordError(ctx, err, "loading week archive", logrus.Fields{"year": input.Year, "week": input.Week})
		}
		return s.renderErrorResponse(ctx, status, message)
	}

	data := templates.ArchivePageData{
		Heading:  fmt.Sprintf("Week %d of %d", input.Week, input.Year),
		Posts:    postSummaries(posts),
		LoggedIn: UserFromContext(ctx) != nil,
	}

	body, err := renderComponent(ctx, templates.ArchivePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering week archive", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

// requireAdmin returns a redirect response when the requester is not a logged
// in administrator, and nil when access is granted.
func (s *Server) requireAdmin(ctx context.Context, next string) *htmlResponse {
	account := UserFromContext(ctx)
	if account != nil && account.IsAdmin {
		return nil
	}

	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = "/accounts/login/?next=" + url.QueryEscape(next)
	return response
}

// ensureSession returns the request's session, creating a fresh one (and the
// cookie announcing it) when the visitor has none yet.
func (s *Server) ensureSession(ctx context.Context) (*session.Session, string, error) {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess, "", nil
	}

	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, "", err
	}

	cookie := &stdhttp.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(s.cookieTTL / time.Second),
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
	}

	return sess, cookie.String(), nil
}

func (s *Server) postPageData(ctx context.Context, post *blog.Post, comments []blog.Comment, submitted *commentForm, fieldErrors map[string]string) templates.PostPageData {
	form := templates.CommentFormData{FieldErrors: fieldErrors}

	if submitted != nil {
		form.Name = submitted.Name
		form.Email = submitted.Email
		form.Website = submitted.Website
		form.Body = submitted.Body
	} else if sess := SessionFromContext(ctx); sess != nil {
		form.Name = sess.CommenterName
		form.Email = sess.CommenterEmail
		form.Website = sess.CommenterWebsite
	}

	views := make([]templates.CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, templates.CommentView{
			Name:      comment.Name,
			Website:   comment.Website,
			Body:      comment.Body,
			Published: comment.CreatedAt.Format(publishedDateLayout),
		})
	}

	return templates.PostPageData{
		Title:      post.Title,
		Slug:       post.Slug,
		Published:  post.CreatedAt.Format(publishedDateLayout),
		Paragraphs: splitParagraphs(post.Body),
		Comments:   views,
		Form:       form,
		LoggedIn:   UserFromContext(ctx) != nil,
	}
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func classifyError(err error) (int, string) {
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case eris.Is(err, blog.ErrPostNotFound):
		return stdhttp.StatusNotFound, "We couldn't find that post."
	case eris.Is(err, blog.ErrInvalidArchiveWindow):
		return stdhttp.StatusNotFound, "That archive period doesn't exist."
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	title := fmt.Sprintf("%s • Marginalia", label)
	component := templates.ErrorPage(templates.ErrorPageData{
		Title:       title,
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func postSummaries(posts []blog.Post) []templates.PostSummaryView {
	views := make([]templates.PostSummaryView, 0, len(posts))
	for _, post := range posts {
		views = append(views, templates.PostSummaryView{
			Title:     post.Title,
			URL:       "/blog/post/" + url.PathEscape(post.Slug),
			Published: post.CreatedAt.Format(publishedDateLayout),
		})
	}
	return views
}

func splitParagraphs(body string) []string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	blocks := strings.Split(normalized, "\n\n")

	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
