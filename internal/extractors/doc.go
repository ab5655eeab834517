// Package extractors turns uploaded files into plain text.
//
// Each sub-package handles one family of formats and implements
// driven.Extractor. The Registry dispatches blobs by file extension and
// concatenates the results in input order.
package extractors
