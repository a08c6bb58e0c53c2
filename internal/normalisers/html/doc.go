// Package html turns HTML email bodies into readable plain text. Scripts,
// styles and comments are dropped and entities are decoded so the text
// chunks and embeds cleanly.
package html
