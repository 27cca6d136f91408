// Package slack builds the JSON responses returned to a slash command.
package slack
