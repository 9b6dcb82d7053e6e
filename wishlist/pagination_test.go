package wishlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testListURL = testBase + "/hz/wishlist/ls/L1"

func TestAdvancerNext(t *testing.T) {
	tests := []struct {
		name     string
		page     testPage
		wantURL  string
		wantMore bool
	}{
		{
			name:     "key and repeated show-more link",
			page:     testPage{lek: "KEY1", showMore: "/hz/wishlist/ls/L1?type=wishlist"},
			wantURL:  testListURL + "?lek=KEY1",
			wantMore: true,
		},
		{
			name:     "key only",
			page:     testPage{lek: "KEY1"},
			wantURL:  testListURL + "?lek=KEY1",
			wantMore: true,
		},
		{
			name:     "token link carrying the key",
			page:     testPage{lek: "KEY1", showMore: "/hz/wishlist/slv/items?lid=L1&paginationToken=KEY1"},
			wantURL:  testBase + "/hz/wishlist/slv/items?lid=L1&paginationToken=KEY1",
			wantMore: true,
		},
		{
			name:     "link without key",
			page:     testPage{showMore: "/hz/wishlist/ls/L1?lek=OLD"},
			wantMore: false,
		},
		{
			name:     "nothing",
			page:     testPage{},
			wantMore: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := NewAdvancer(newTestSite(t), testListURL, 0)
			next, more := adv.Next(tt.page.doc())
			assert.Equal(t, tt.wantMore, more)
			assert.Equal(t, tt.wantURL, next)
		})
	}
}

func TestAdvancerRefusesRepeatedURL(t *testing.T) {
	adv := NewAdvancer(newTestSite(t), testListURL, 0)

	next, more := adv.Next(testPage{lek: "KEY1"}.doc())
	require.True(t, more)
	require.Equal(t, testListURL+"?lek=KEY1", next)

	// The server hands out the same key again.
	_, more = adv.Next(testPage{lek: "KEY1"}.doc())
	assert.False(t, more)
	assert.Equal(t, 2, adv.Pages())
}

func TestAdvancerPageCap(t *testing.T) {
	adv := NewAdvancer(newTestSite(t), testListURL, 2)

	_, more := adv.Next(testPage{lek: "KEY1"}.doc())
	require.True(t, more)

	_, more = adv.Next(testPage{lek: "KEY2"}.doc())
	assert.False(t, more)
}
