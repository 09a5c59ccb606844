// Package corpora downloads, caches and tokenizes text classification
// datasets into integer-id examples.
//
// Quick start:
//
//	train, err := corpora.LoadSplit(ctx, "AmazonReviewPolarity", "train")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	examples, vocab, err := corpora.Process(train)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(examples.Len(), vocab.Size())
//
// Archives are cached under ~/.corpora/datasets/<Name>/ and verified by
// checksum, so only the first call downloads anything.
package corpora
