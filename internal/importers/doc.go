// Package importers reads Goodreads library exports and writes them into a
// user's library.
//
// # Flow
//
//	CSV text → ParseGoodreadsCSV → []GoodreadsBook → Pipeline.Import → books + user_library
//
// Parsing never fails as a whole except for an empty file or a header that
// lacks the Title, Author or Exclusive Shelf columns. Every other problem is
// reported per row in ParseResult.Errors, and rows on shelves other than
// read, currently-reading and to-read are counted in ParseResult.Skipped.
//
// Import is an upsert keyed by (title, author) for the book and by
// (user, book) for the library entry. Re-importing the same export updates
// status and rating instead of creating duplicates.
//
// # Example Usage
//
//	parsed := importers.ParseGoodreadsCSV(string(data))
//	if parsed.Failed() {
//	    return parsed.Errors
//	}
//
//	pipeline := importers.NewPipeline(booksRepo, libraryRepo).WithEnrichment(enqueuer)
//	result := pipeline.Import(ctx, userID, parsed.Books)
package importers
