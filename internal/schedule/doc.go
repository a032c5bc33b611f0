// Package schedule parses cron expressions, describes them in English and
// enumerates their upcoming occurrences.
//
// Supported syntax:
//
//	┌───────────── second (0-59, optional)
//	│ ┌───────────── minute (0-59)
//	│ │ ┌───────────── hour (0-23)
//	│ │ │ ┌───────────── day of month (1-31)
//	│ │ │ │ ┌───────────── month (1-12)
//	│ │ │ │ │ ┌───────────── day of week (0-6, 0=Sunday)
//	│ │ │ │ │ │
//	* * * * * *
//
// Each field supports single values (5), ranges (1-5), lists (1,3,5),
// steps (*/15, 5/15, 1-30/5) and the wildcard (*). Month and weekday names,
// and the L, W, # and ? extensions, are not supported.
//
// Day-of-month and day-of-week must both match for a day to match. This
// differs from Vixie cron, which ORs the two when both are restricted.
//
// Occurrences are computed at one-minute resolution in the location of the
// time passed in, searching at most MaxIterations minutes ahead. A seconds
// field is described and stamped onto each occurrence but never decides
// which minutes match.
package schedule
