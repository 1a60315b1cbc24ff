// Package slr extracts systematic-literature-review data from research paper
// abstracts and documents using Gemini, and accumulates the answers into a
// single markdown table.
//
// # Problem Statement
//
// Screening a literature corpus means asking the same question of hundreds of
// papers and collecting the answers into one table. Doing it by hand with a
// chat model is slow and fragile:
//
//   - Rate limits: free and low tiers answer 429 after a handful of requests
//   - Lost progress: one failure late in the corpus throws away everything before it
//   - Noisy answers: models wrap the rows in prose, code fences and repeated headers
//
// The slr package solves this by providing:
//
//   - Batching: pasted abstracts are split on "ID <n>:" markers into batches
//   - Paced, sequential calls with exponential backoff on rate-limit signals
//   - Fail-fast runs that keep every row gathered before the failing unit
//   - Row extraction that keeps only table data rows from the raw answer
//
// # Basic Usage
//
//	ctx := context.Background()
//	client, _ := genai.NewClient(ctx, &genai.ClientConfig{APIKey: os.Getenv("GEMINI_API_KEY")})
//	x := slr.New(client)
//
//	res, err := x.RunText(ctx, "ID 1: Title: X\nAbstract: Y\n\nID 2: Title: Z\nAbstract: W",
//	    "Extract the sample size of each study.")
//	if res != nil {
//	    // after a failed run res still holds the rows extracted before it
//	    fmt.Println(res.Table)
//	}
//	if err != nil {
//	    log.Fatal(err) // res is nil when the input was rejected
//	}
//
// # File Mode
//
// Documents are sent one per request, as inline blobs, in upload order:
//
//	files, _ := slr.LoadFiles(ctx, []string{"a.pdf", "b.pdf"})
//	res, err := x.RunFiles(ctx, files, instruction)
//
// # Table Header
//
// The header of the result table is taken from the instruction when it
// contains a markdown header line followed by a separator line. Otherwise the
// three-column default "| Study ID | Paper title | Data |" is used. Lines of
// the answer that contain "study id" (any case) or "---" are never kept as rows.
//
// # Progress
//
// Observers receive a Snapshot after every state change:
//
//	x := slr.New(client, slr.WithObserver(func(s slr.Snapshot) {
//	    log.Printf("%d/%d units", s.Completed, s.Total)
//	}))
//
// # Dry Run
//
// Plan splits the input and renders every request without calling the model:
//
//	plan, _ := x.Plan(slr.Input{Mode: slr.ModeText, Text: text, Instruction: instruction})
//	fmt.Print(plan.Text())
//
// # Export
//
// ToCSV reshapes the accumulated table into CSV. A Sink writes exports to any
// gocloud.dev bucket URL (file://, mem://, gs://, s3://) and zstd-compresses
// keys ending in ".zst".
//
// # Testing
//
// NewForTesting wires an Extractor to a RecordingClock so backoff and
// inter-unit delays take no wall time and can be asserted on:
//
//	x, clock := slr.NewForTesting(slr.InvokerFunc(fake))
//	_, _ = x.RunText(ctx, text, "")
//	fmt.Println(clock.Sleeps())
package slr
