// Package buffer implements the memory-bounded buffering fabric that sits
// between event ingestion and the upload workers that write to storage.
//
// # Registry, Enqueue, Dequeue
//
// A Manager owns a Registry of per-stream queues, a shared membudget.Budget,
// and the Enqueue/Dequeue facades built on top of them:
//
//	mgr := buffer.NewManager(buffer.Config{
//	    GlobalLimitBytes:          512 * 1024 * 1024,
//	    BlockBytes:                10 * 1024 * 1024,
//	    InitialQueueCapacityBytes: 10 * 1024 * 1024,
//	    MaxQueueBytes:             64 * 1024 * 1024,
//	})
//
//	desc := stream.Descriptor{Namespace: "public", Name: "orders"}
//	err := mgr.Enqueue.AddRecord(ctx, desc, stream.NewRecord(event))
//
// AddRecord blocks (subject to ctx) only while the stream's queue is full
// and cannot grow, because it is at its MaxQueueBytes ceiling or the global
// budget is exhausted — see Enqueue.
//
// # Batches
//
// An upload worker pulls a Batch with Dequeue.Take, iterates it with Next,
// and must call Close exactly once when done, successful or not, to refund
// the batch's reserved bytes:
//
//	batch := mgr.Dequeue.Take(desc, 8*1024*1024)
//	if batch == nil {
//	    return // nothing resident
//	}
//	defer batch.Close()
//	for {
//	    msg, ok := batch.Next()
//	    if !ok {
//	        break
//	    }
//	    // encode and write msg
//	}
//
// # Shutdown
//
// Manager.Close clears every registered queue. It does not refund their
// bytes to the budget: by the time Close runs, the process is tearing down
// along with the budget itself.
package buffer
