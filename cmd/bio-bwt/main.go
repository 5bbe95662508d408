// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
bio-bwt builds a BWT/suffix-array index of a FASTA reference and answers
exact-match queries against it.

  bio-bwt index [-sa-interval N] [-fai] ref.fa prefix
  bio-bwt count prefix PATTERN...
  bio-bwt locate prefix PATTERN...

index writes prefix.bwt, prefix.sa, prefix.ann, and prefix.amb.  The reference
may only contain A, C, G, and T.  count prints the number of occurrences of
each pattern; locate prints every occurrence as a contig name and a 1-based
position.  Occurrences that span two contigs are not reported.
*/
package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bioengine/bwt"
	"v.io/x/lib/cmdline"
)

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Build an index of a FASTA reference",
		ArgsName: "fapath prefix",
	}
	saInterval := cmd.Flags.Int("sa-interval", bwt.DefaultIndexOpts.SAInterval, "Keep every Nth suffix-array entry; 1 keeps all of them")
	writeFai := cmd.Flags.Bool("fai", false, "Also write fapath.fai")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("index takes fapath and prefix, but got %v", argv)
		}
		return index(vcontext.Background(), argv[0], argv[1], bwt.IndexOpts{SAInterval: *saInterval}, *writeFai)
	})
	return cmd
}

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Count the occurrences of patterns",
		ArgsName: "prefix pattern...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("count takes an index prefix and at least one pattern, but got %v", argv)
		}
		return count(vcontext.Background(), argv[0], argv[1:], env.Stdout)
	})
	return cmd
}

func newCmdLocate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "locate",
		Short:    "Print the positions of patterns",
		ArgsName: "prefix pattern...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("locate takes an index prefix and at least one pattern, but got %v", argv)
		}
		return locate(vcontext.Background(), argv[0], argv[1:], env.Stdout)
	})
	return cmd
}

func main() {
	shutdown := grail.Init()
	defer shutdown()
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-bwt",
			Short:    "Build and query BWT/suffix-array reference indexes",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdIndex(),
				newCmdCount(),
				newCmdLocate(),
			},
		})
}
