package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantHeader string
		wantBody   string
		wantHad    bool
		wantErr    error
	}{
		{"no front matter", "# Title\n", "", "# Title\n", false, nil},
		{"simple", "---\ntitle: A\n---\nbody\n", "title: A\n", "body\n", true, nil},
		{"crlf", "---\r\ntitle: A\r\n---\r\nbody", "title: A\r\n", "body", true, nil},
		{"empty header", "---\n---\nbody", "", "body", true, nil},
		{"closing at eof", "---\ntitle: A\n---", "title: A\n", "", true, nil},
		{"dots close", "---\ntitle: A\n...\nbody", "title: A\n", "body", true, nil},
		{"unterminated", "---\ntitle: A\nbody", "", "", false, ErrMissingClosingDelimiter},
		{"dashes mid file", "text\n---\nmore", "", "text\n---\nmore", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, had, err := Split([]byte(tt.in))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHad, had)
			assert.Equal(t, tt.wantHeader, string(header))
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestParseTypedFields(t *testing.T) {
	src := `---
title: Hello
layout: post
permalink: /hello/
published: false
categories: news tech
tags: [go, ssg]
date: 2024-03-05 10:30:00 +0100
pagination:
  enabled: true
  per_page: 5
author: ada
---
Body`
	fm, body, had, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, "Body", string(body))

	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, "post", fm.Layout)
	assert.Equal(t, "/hello/", fm.Permalink)
	assert.False(t, fm.IsPublished())
	assert.Equal(t, []string{"news", "tech"}, fm.Categories)
	assert.Equal(t, []string{"go", "ssg"}, fm.Tags)
	assert.Equal(t, 2024, fm.Date.Year())
	assert.Equal(t, time.March, fm.Date.Month())
	require.NotNil(t, fm.Pagination)
	assert.True(t, fm.Pagination.Enabled)
	assert.Equal(t, 5, fm.Pagination.PerPage)
	assert.Equal(t, "ada", fm.Extra["author"])

	data := fm.Data()
	assert.Equal(t, "Hello", data["title"])
	assert.Equal(t, "ada", data["author"])
}

func TestParseWithoutHeader(t *testing.T) {
	fm, body, had, err := Parse([]byte("plain"))
	require.NoError(t, err)
	assert.False(t, had)
	assert.True(t, fm.IsPublished())
	assert.Equal(t, "plain", string(body))
}

func TestParseInvalidYAML(t *testing.T) {
	_, _, had, err := Parse([]byte("---\ntitle: [unclosed\n---\nbody"))
	assert.Error(t, err)
	assert.True(t, had)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-01-02", "2024-01-02 15:04:05", "2024-01-02T15:04:05Z"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 2, got.Day())
	}
	_, err := ParseDate("not a date")
	assert.Error(t, err)
}
