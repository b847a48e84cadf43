package itch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"itcharchive/pkg/errors"
)

const fullProjectPage = `<html><head>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="  A short   pitch ">
<meta property="og:image" content="https://img.itch.zone/cover/315x250/cover.PNG">
</head><body>
<div class="header"><img src="https://img.itch.zone/ignored.png"></div>
<h1 class="game_title">  Space
  Game </h1>
<div class="buy_btn_widget"><span class="price">$4.99</span></div>
<div class="formatted_description"><p>First line.</p>
<p>Second   line.</p></div>
<div class="screenshot_list">
  <a href="/shots/one.png"><img src="thumb1.png"></a>
  <a href="https://img.itch.zone/shots/two.gif?v=1"><img src="thumb2.png"></a>
</div>
<div class="game_info_panel_widget">
  <table>
    <tr><td>Status:</td><td>Released</td></tr>
    <tr><td>Genre</td><td>Action</td></tr>
    <tr><td>single cell</td></tr>
    <tr><td>Tags</td><td>
      <a href="https://itch.io/games/tag-pixel-art">Pixel Art</a>
      <a href="https://itch.io/games/tag-retro">Retro</a>
      <a href="https://itch.io/games/tag-retro">Retro</a>
    </td></tr>
  </table>
  <span class="icon icon-windows"></span>
  <span class="icon icon-linux"></span>
  <span class="icon icon-windows"></span>
  <meta itemprop="ratingValue" content="4.6">
  <meta itemprop="ratingCount" content="37">
</div>
</body></html>`

func TestParseProjectFull(t *testing.T) {
	p, err := ParseProject(strings.NewReader(fullProjectPage), "https://some-dev.itch.io/space-game")
	require.NoError(t, err)

	assert.Equal(t, "https://some-dev.itch.io/space-game", p.URL)
	assert.Equal(t, "space-game", p.Slug)
	assert.Equal(t, "Space Game", p.Title)
	assert.Equal(t, "A short pitch", p.ShortDescription)
	assert.Equal(t, "First line. Second line.", p.Description)
	assert.Equal(t, "$4.99", p.Price)
	assert.Equal(t, []string{"Pixel Art", "Retro"}, p.Tags)
	assert.Equal(t, []string{"windows", "linux"}, p.Platforms)
	assert.Equal(t, "Released", p.Info["Status"])
	assert.Equal(t, "Action", p.Info["Genre"])
	assert.NotContains(t, p.Info, "single cell")

	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.6, *p.Rating, 0.0001)
	require.NotNil(t, p.RatingCount)
	assert.Equal(t, 37, *p.RatingCount)

	require.NotNil(t, p.Cover)
	assert.Equal(t, "https://img.itch.zone/cover/315x250/cover.PNG", p.Cover.SourceURL)
	assert.Equal(t, "images/cover.png", p.Cover.Filename)

	require.Len(t, p.Screenshots, 2)
	assert.Equal(t, "https://some-dev.itch.io/shots/one.png", p.Screenshots[0].SourceURL)
	assert.Equal(t, "images/screenshot_0.png", p.Screenshots[0].Filename)
	assert.Equal(t, "images/screenshot_1.gif", p.Screenshots[1].Filename)
}

func TestParseProjectMissingFields(t *testing.T) {
	p, err := ParseProject(strings.NewReader(`<html><body><p>nothing here</p></body></html>`), "https://some-dev.itch.io/bare")
	require.NoError(t, err)

	assert.Equal(t, "bare", p.Title, "title falls back to the slug")
	assert.Empty(t, p.Price)
	assert.Empty(t, p.Description)
	assert.Equal(t, []string{}, p.Tags)
	assert.Equal(t, []string{}, p.Platforms)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.RatingCount)
	assert.Nil(t, p.Cover)
	assert.NotNil(t, p.Screenshots)
	assert.Empty(t, p.Screenshots)
	assert.Nil(t, p.Info)
}

func TestParseProjectFallbacks(t *testing.T) {
	page := `<html><head><meta property="og:title" content="From OG"></head><body>
<div class="game_cover"><img data-lazy_src="/covers/lazy.webp"></div>
<div class="screenshot_list"><img src="/s/a.jpg"><img data-lazy_src="/s/b"></div>
<meta itemprop="ratingValue" content="not a number">
</body></html>`

	p, err := ParseProject(strings.NewReader(page), "https://some-dev.itch.io/fallbacks")
	require.NoError(t, err)

	assert.Equal(t, "From OG", p.Title)
	require.NotNil(t, p.Cover)
	assert.Equal(t, "https://some-dev.itch.io/covers/lazy.webp", p.Cover.SourceURL)
	assert.Equal(t, "images/cover.webp", p.Cover.Filename)

	require.Len(t, p.Screenshots, 2)
	assert.Equal(t, "https://some-dev.itch.io/s/b", p.Screenshots[1].SourceURL)
	assert.Equal(t, "images/screenshot_1.jpg", p.Screenshots[1].Filename)
	assert.Nil(t, p.Rating, "unparsable rating is absent")
}

func TestParseProjectWithoutSlug(t *testing.T) {
	_, err := ParseProject(strings.NewReader("<html></html>"), "https://some-dev.itch.io/")
	assert.Error(t, err)
}

func TestParseProjectRejectsDotSegmentSlug(t *testing.T) {
	page := `<html><body><h1 class="game_title">Sneaky</h1></body></html>`

	listing, err := ParseListing(strings.NewReader(`<div class="game_cell"><a class="game_link" href="/%2e%2e">x</a></div>`), "https://dev.itch.io")
	require.NoError(t, err)
	require.Len(t, listing.Links, 1)

	_, err = ParseProject(strings.NewReader(page), listing.Links[0])
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
}

func TestParseListing(t *testing.T) {
	page := `<html><body>
<div class="game_cell"><a class="game_link" href="/a">A</a><a class="title" href="/a">A</a></div>
<div class="game_cell"><a class="title" href="https://some-dev.itch.io/b">B</a></div>
<div class="game_cell"><a class="title">no href</a></div>
<a class="next_page" href="?page=2">next</a>
</body></html>`

	listing, err := ParseListing(strings.NewReader(page), "https://some-dev.itch.io")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://some-dev.itch.io/a", "https://some-dev.itch.io/b"}, listing.Links)
	assert.True(t, listing.HasNext)
}

func TestParseListingThumbFallback(t *testing.T) {
	page := `<div class="game_cell"><div class="game_thumb"><a href="/only-thumb">x</a></div></div>`

	listing, err := ParseListing(strings.NewReader(page), "https://some-dev.itch.io")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://some-dev.itch.io/only-thumb"}, listing.Links)
	assert.False(t, listing.HasNext)
}

func TestNormalizeCreator(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"some-dev", "some-dev", false},
		{"  Some-Dev ", "some-dev", false},
		{"dev42", "dev42", false},
		{"", "", true},
		{"bad name", "", true},
		{"evil.com/x", "", true},
		{"under_score", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeCreator(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, IsValidCreator(tt.input))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreatorPageURL(t *testing.T) {
	assert.Equal(t, "https://dev.itch.io", CreatorPageURL("https://dev.itch.io", 1))
	assert.Equal(t, "https://dev.itch.io?page=3", CreatorPageURL("https://dev.itch.io", 3))
	assert.Equal(t, "http://127.0.0.1:1234/dev?page=2", CreatorPageURL("http://127.0.0.1:1234/dev", 2))
}
