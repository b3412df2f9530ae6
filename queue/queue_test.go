package queue

import (
	"container/heap"
	"testing"

	"github.com/raipankaj/KoreDB/model"
	"github.com/stretchr/testify/assert"
)

func TestDescendingPriorityQueuePopsHighestFirst(t *testing.T) {
	pq := &PriorityQueue{Descending: true}
	heap.Init(pq)
	heap.Push(pq, &Item{Node: 1, Score: 0.2})
	heap.Push(pq, &Item{Node: 2, Score: 0.9})
	heap.Push(pq, &Item{Node: 3, Score: 0.5})

	var order []float32
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*Item)
		order = append(order, item.Score)
	}
	assert.Equal(t, []float32{0.9, 0.5, 0.2}, order)
}

func TestAscendingPriorityQueueTopIsWorst(t *testing.T) {
	pq := &PriorityQueue{Descending: false}
	heap.Init(pq)
	heap.Push(pq, &Item{Node: model.LocalID(1), Score: 0.8})
	heap.Push(pq, &Item{Node: model.LocalID(2), Score: 0.1})
	heap.Push(pq, &Item{Node: model.LocalID(3), Score: 0.5})

	assert.Equal(t, float32(0.1), pq.Top().Score)
}
