// Package ime implements the input state machine at the heart of
// cantotype.
//
// A Controller owns the live text buffer and interprets full-buffer change
// events from a front-end. Trailing digits are control keys: 1-6 select a
// candidate on the current page, 0 pages forward, 9 pages back. All other
// edits re-segment the buffer and, after a debounce window, dispatch a
// transliteration query whose response repopulates the candidate list.
//
// Front-ends (the tcell pad, the IBus engine) are thin shells: they deliver
// buffer text in and render Snapshot values out.
package ime
