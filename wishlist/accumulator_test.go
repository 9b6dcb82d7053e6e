package wishlist

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-wishlists/page"
	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorPaginates(t *testing.T) {
	acc := NewAccumulator(testListURL, newTestExtractor(t, parser.LocaleUS), 0)
	assert.False(t, acc.Started())

	first := testPage{
		listID: "L1",
		title:  "Birthday",
		items: []testItem{
			{id: "A1", price: "10.00", title: "First"},
			{id: "A2", price: "oops", title: "Broken"},
			{id: "A3", price: "30.00", title: "Third"},
		},
		lek:      "KEY1",
		showMore: "/hz/wishlist/ls/L1",
	}
	step := acc.StartWith(first.doc())
	require.True(t, step.More)
	assert.Equal(t, testListURL+"?lek=KEY1", step.NextURL)
	assert.Len(t, step.Products, 2)
	assert.Len(t, step.Skipped, 1)

	second := testPage{
		items:    []testItem{{id: "A1", price: "9.00", title: "First again"}},
		showMore: "/hz/wishlist/ls/L1",
	}
	step = acc.Extend(second.doc())
	assert.False(t, step.More, "no continuation key means exhaustion")
	assert.Len(t, step.Products, 1)

	wl := acc.Wishlist()
	assert.Equal(t, "L1", wl.ID)
	assert.Equal(t, "Birthday", wl.Title)
	assert.Equal(t, testListURL, wl.URL)
	assert.False(t, wl.Errored)
	require.Len(t, wl.Products, 3)
	assert.Equal(t, []string{"A1", "A3", "A1"}, []string{wl.Products[0].ID, wl.Products[1].ID, wl.Products[2].ID})
}

func TestAccumulatorChallengePage(t *testing.T) {
	acc := NewAccumulator(testListURL, newTestExtractor(t, parser.LocaleUS), 0)

	challenge := page.MustParse(`<html><body><form action="/errors/validateCaptcha">
		<input id="captchacharacters"></form>
		<li data-itemid="Z" data-price="1.00"></li>
		<input name="lastEvaluatedKey" value="KEY1"></body></html>`, testListURL)

	step := acc.StartWith(challenge)
	assert.False(t, step.More)
	assert.True(t, step.Challenged)
	assert.Empty(t, step.Products)

	wl := acc.Wishlist()
	assert.True(t, wl.Errored)
	assert.Empty(t, wl.ID)
	assert.Equal(t, "Error: "+testListURL, wl.Title)
	assert.Empty(t, wl.Products)

	step = acc.Extend(testPage{items: []testItem{{id: "B1", price: "1.00"}}}.doc())
	assert.Empty(t, step.Products)
	assert.Empty(t, acc.Wishlist().Products)
}

func TestAccumulatorChallengeOnContinuationPage(t *testing.T) {
	acc := NewAccumulator(testListURL, newTestExtractor(t, parser.LocaleUS), 0)

	first := testPage{
		listID: "L1",
		items:  []testItem{{id: "A1", price: "10.00", title: "First"}},
		lek:    "K1",
	}
	step := acc.StartWith(first.doc())
	require.True(t, step.More)
	assert.False(t, step.Challenged)

	captcha := page.MustParse(`<html><body><form action="/errors/validateCaptcha">
		<input id="captchacharacters"></form></body></html>`, step.NextURL)
	step = acc.Extend(captcha)
	assert.True(t, step.Challenged)
	assert.False(t, step.More)
	assert.Empty(t, step.Products)

	wl := acc.Wishlist()
	assert.False(t, wl.Errored, "a truncated list keeps its earlier pages")
	assert.Equal(t, "L1", wl.ID)
	require.Len(t, wl.Products, 1)
	assert.Equal(t, "A1", wl.Products[0].ID)
}

func TestAccumulatorFail(t *testing.T) {
	x := newTestExtractor(t, parser.LocaleUS)

	unstarted := NewAccumulator(testListURL, x, 0)
	unstarted.Fail(errors.New("connection refused"))
	assert.True(t, unstarted.Errored())
	assert.Equal(t, "Error: "+testListURL, unstarted.Wishlist().Title)

	partial := NewAccumulator(testListURL, x, 0)
	partial.StartWith(testPage{listID: "L1", items: []testItem{{id: "A1", price: "1.00"}}, lek: "K"}.doc())
	partial.Fail(errors.New("timeout"))
	assert.False(t, partial.Errored())
	assert.Len(t, partial.Wishlist().Products, 1)
}
