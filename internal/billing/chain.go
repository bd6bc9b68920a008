package billing

// ChainIndex resolves parent/child relationships over a full snapshot of one
// owner's documents. Settlement and dedup decisions are functions of the whole
// collection, so the index must always be built from a complete snapshot.
type ChainIndex struct {
	byID     map[int64]Document
	byParent map[int64][]Document
}

// NewChainIndex builds the index from a document snapshot.
func NewChainIndex(docs []Document) *ChainIndex {
	ix := &ChainIndex{
		byID:     make(map[int64]Document, len(docs)),
		byParent: make(map[int64][]Document),
	}
	for _, doc := range docs {
		ix.byID[doc.ID] = doc
		if doc.ParentID != nil {
			ix.byParent[*doc.ParentID] = append(ix.byParent[*doc.ParentID], doc)
		}
	}
	return ix
}

// Children returns the documents issued against the given document.
func (ix *ChainIndex) Children(id int64) []Document {
	return ix.byParent[id]
}

// IsSettledByChildren reports whether payment tracking has moved to the
// children: a billed invoice with at least one child must be excluded from
// pending-invoice views.
func (ix *ChainIndex) IsSettledByChildren(doc Document) bool {
	return doc.Type == TypeInvoice && doc.Status == StatusBilled && len(ix.byParent[doc.ID]) > 0
}

// HasInvoiceDescendant reports whether an accepted quote has already been
// converted through child documents and must not reappear in the
// signed-needs-invoicing queue.
func (ix *ChainIndex) HasInvoiceDescendant(doc Document) bool {
	return doc.Status == StatusAccepted && len(ix.byParent[doc.ID]) > 0
}

// IsRevenueDuplicate reports whether counting this document would count the
// same cash event twice: when both a parent and one of its children are paid,
// only the child is counted and the parent is excluded.
func (ix *ChainIndex) IsRevenueDuplicate(doc Document) bool {
	if doc.Status != StatusPaid {
		return false
	}
	for _, child := range ix.byParent[doc.ID] {
		if child.Status == StatusPaid {
			return true
		}
	}
	return false
}
