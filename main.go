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

package main

import (
	"github.com/nest-vault/nv-api/cmd"
	"github.com/spf13/viper"
)

func configureViper() {
	// read config file when one is present; flags and environment variables
	// cover everything the file does
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/nest-vault/")
	viper.AddConfigPath("$HOME/.config/nest-vault")
	viper.AddConfigPath(".")

	_ = viper.ReadInConfig()
}

func main() {
	configureViper()
	cmd.Execute()
}
