// Package query composes the filter, search and page state of a view.
//
// A Composer owns one Query. SetFilter emits a changed query straight away,
// SetSearch is coalesced by a Debouncer so a burst of keystrokes produces one
// emission carrying the last text, and SetPage only moves the client-side
// window computed by Paginate. Stop cancels the pending search timer when
// the view goes away.
package query
