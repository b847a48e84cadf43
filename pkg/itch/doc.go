// Package itch talks to itch.io creator and project pages.
//
// The Client lists a creator's public projects, fetches and parses project
// pages, and downloads images. Pages are parsed with goquery using the fixed
// selectors itch.io renders; every extracted field is best effort.
//
// Failures are reported with the itcharchive/pkg/errors taxonomy: a missing
// creator or project page is NotFound, any other transport or status failure
// is a FetchError, and a page that is not HTML is a ParseError.
package itch
