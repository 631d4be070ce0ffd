package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/plumekit/plume/internal/domain"
	"github.com/plumekit/plume/internal/search"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	likedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	replyStyle  = lipgloss.NewStyle().PaddingLeft(4)
	urlStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
)

func renderFeed(w io.Writer, posts []domain.Post, liked map[int64]bool) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts yet.")
		return
	}
	for _, p := range posts {
		heart := "♡"
		if liked[p.ID] {
			heart = likedStyle.Render("♥")
		}
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("#%d", p.ID)), p.Preview(72))
		fmt.Fprintf(w, "  %s\n", metaStyle.Render(fmt.Sprintf(
			"%s · %s %d · %d comments · %s",
			p.Author, heart, p.Thumbs, len(p.Comments), p.CreatedAt.Format("2006-01-02 15:04"),
		)))
	}
}

func renderPost(w io.Writer, p domain.Post, liked bool) {
	heart := "♡"
	if liked {
		heart = likedStyle.Render("♥")
	}
	fmt.Fprintf(w, "%s by %s, %s\n", headerStyle.Render(fmt.Sprintf("Post #%d", p.ID)),
		p.Author, p.CreatedAt.Format(time.DateOnly))
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.Content)
	for _, img := range p.Images {
		fmt.Fprintf(w, "  %s\n", urlStyle.Render(img))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d\n", heart, p.Thumbs)

	if len(p.Comments) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Comments"))
		for _, c := range p.Comments {
			line := fmt.Sprintf("[%d] %s: %s", c.ID, c.AuthorName, c.Content)
			if c.IsReply() {
				line = replyStyle.Render(fmt.Sprintf("↳ %s", line))
			}
			fmt.Fprintln(w, line)
		}
	}
}

func renderComments(w io.Writer, comments []domain.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	for _, c := range comments {
		line := fmt.Sprintf("[%d] %s: %s", c.ID, c.AuthorName, c.Content)
		if c.IsReply() {
			line = replyStyle.Render(fmt.Sprintf("↳ %s", line))
		}
		fmt.Fprintf(w, "%s\n  %s\n", line, metaStyle.Render(c.CreatedAt.Format("2006-01-02 15:04")))
	}
}

func renderMedia(w io.Writer, files []domain.MediaFile) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No media files.")
		return
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s %s\n  %s\n", headerStyle.Render(f.Name),
			metaStyle.Render(f.Type), urlStyle.Render(f.URL))
	}
}

func renderResults(w io.Writer, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	for _, r := range results {
		switch r.Kind {
		case search.KindPost:
			fmt.Fprintf(w, "%s  %s\n", metaStyle.Render(fmt.Sprintf("post #%d", r.PostID)), r.Title)
		case search.KindMedia:
			fmt.Fprintf(w, "%s  %s %s\n", metaStyle.Render("media"), r.Title, urlStyle.Render(r.URL))
		}
	}
}

func renderProfile(w io.Writer, p domain.Profile) {
	fmt.Fprintln(w, headerStyle.Render(p.Name))
	if p.Birth != "" {
		fmt.Fprintf(w, "Born: %s\n", p.Birth)
	}
	if p.Avatar != "" {
		fmt.Fprintf(w, "Avatar: %s\n", urlStyle.Render(p.Avatar))
	}
	fmt.Fprintf(w, "%s\n", metaStyle.Render(fmt.Sprintf("profile id %d", p.ID)))
}
