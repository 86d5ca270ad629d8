// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nest-vault/nv-api/common"
)

var _ = Describe("Cache", func() {
	It("stores and expires entries", func() {
		cache, err := common.NewCache(10, 50*time.Millisecond, "")
		Expect(err).To(BeNil())

		ctx := context.Background()
		Expect(cache.Set(ctx, "key", []byte("value"))).To(Succeed())

		got, ok := cache.Get(ctx, "key")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal([]byte("value")))

		Eventually(func() bool {
			_, ok := cache.Get(ctx, "key")
			return ok
		}).Should(BeFalse())
	})

	It("misses unknown keys", func() {
		cache, err := common.NewCache(10, time.Minute, "")
		Expect(err).To(BeNil())

		_, ok := cache.Get(context.Background(), "missing")
		Expect(ok).To(BeFalse())
	})
})
